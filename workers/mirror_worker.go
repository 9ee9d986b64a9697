// workers/mirror_worker.go
package workers

import (
	"context"
	"path"

	"snake-map-server/models"
	"snake-map-server/services"

	"github.com/sirupsen/logrus"
)

// ArchiveStore is the part of utils.ObjectStore the mirror needs.
type ArchiveStore interface {
	ObjectSize(ctx context.Context, key string) (int64, bool, error)
	UploadFile(ctx context.Context, path, key, contentType string) error
}

// CatalogMirror copies every catalog archive into a bucket so a CDN can
// serve downloads. Objects whose size already matches are left alone.
type CatalogMirror struct {
	Catalog *services.Catalog
	Store   ArchiveStore
	Prefix  string
}

func NewCatalogMirror(catalog *services.Catalog, store ArchiveStore) *CatalogMirror {
	return &CatalogMirror{Catalog: catalog, Store: store, Prefix: "maps"}
}

// ObjectKey is where the archive of map id lives in the bucket.
func (m *CatalogMirror) ObjectKey(id string) string {
	return path.Join(m.Prefix, id+models.MapArchiveExt)
}

// Sync uploads missing or changed archives. Failures on one archive are
// logged and do not stop the others.
func (m *CatalogMirror) Sync(ctx context.Context) (uploaded, failed int) {
	for _, desc := range m.Catalog.All() {
		if ctx.Err() != nil {
			logrus.Info("Catalog mirror stopped.")
			return uploaded, failed
		}

		key := m.ObjectKey(desc.ID)
		size, found, err := m.Store.ObjectSize(ctx, key)
		if err != nil {
			logrus.WithField("key", key).Errorf("❌ [MIRROR] %v", err)
			failed++
			continue
		}
		if found && size == desc.Size {
			continue
		}

		if err := m.Store.UploadFile(ctx, desc.ArchivePath, key, "application/octet-stream"); err != nil {
			logrus.WithField("key", key).Errorf("❌ [MIRROR] %v", err)
			failed++
			continue
		}
		uploaded++
	}

	logrus.WithFields(logrus.Fields{
		"uploaded": uploaded,
		"failed":   failed,
		"maps":     m.Catalog.Len(),
	}).Info("✅ [MIRROR] Catalog mirror pass finished")
	return uploaded, failed
}

// Run adapts Sync to a scheduled job.
func (m *CatalogMirror) Run(ctx context.Context) {
	m.Sync(ctx)
}
