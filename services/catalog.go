// services/catalog.go
package services

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"snake-map-server/models"
	"snake-map-server/utils"

	"github.com/gosimple/slug"
	"github.com/hashicorp/go-memdb"
	"github.com/sirupsen/logrus"
)

const mapTable = "map"

var (
	ErrMapNotFound      = errors.New("map not found")
	ErrMissingAttribute = errors.New("missing required attribute")
)

// SkippedArchive records an archive that did not make it into the catalog.
type SkippedArchive struct {
	File   string
	Reason string
}

// CatalogOptions tunes BuildCatalog.
type CatalogOptions struct {
	// Strict turns unreadable archives and bad metadata into a build error.
	// Archives without map.xml are skipped in both modes.
	Strict bool
}

// Catalog is the immutable, ordered set of maps served by this process.
// It is safe for concurrent use once BuildCatalog returns.
type Catalog struct {
	maps    []models.MapDescriptor
	index   *memdb.MemDB
	skipped []SkippedArchive
}

func catalogSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			mapTable: {
				Name: mapTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:         "id",
						AllowMissing: false,
						Unique:       true,
						Indexer:      &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}
}

// BuildCatalog scans dir for map archives and reads each one's map.xml.
// Descriptors keep directory enumeration order.
func BuildCatalog(dir string, opts CatalogOptions) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read maps directory: %w", err)
	}

	index, err := memdb.NewMemDB(catalogSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog index: %w", err)
	}

	c := &Catalog{index: index}
	txn := index.Txn(true)
	defer txn.Abort()

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, models.MapArchiveExt) {
			continue
		}

		desc, err := readArchive(filepath.Join(dir, name))
		if err != nil {
			if opts.Strict && !errors.Is(err, utils.ErrEntryNotFound) {
				return nil, fmt.Errorf("map archive %s: %w", name, err)
			}
			logrus.WithFields(logrus.Fields{"archive": name}).
				Warnf("⚠️  [CATALOG] Skipping map archive: %v", err)
			c.skipped = append(c.skipped, SkippedArchive{File: name, Reason: err.Error()})
			continue
		}

		existing, err := txn.First(mapTable, "id", desc.ID)
		if err != nil {
			return nil, fmt.Errorf("catalog lookup %s: %w", desc.ID, err)
		}
		if existing != nil {
			c.skipped = append(c.skipped, SkippedArchive{File: name, Reason: "duplicate map id"})
			continue
		}

		c.maps = append(c.maps, *desc)
		if err := txn.Insert(mapTable, desc); err != nil {
			return nil, fmt.Errorf("catalog insert %s: %w", desc.ID, err)
		}
	}
	txn.Commit()

	c.logSummary()
	return c, nil
}

func readArchive(path string) (*models.MapDescriptor, error) {
	id := strings.TrimSuffix(filepath.Base(path), models.MapArchiveExt)
	if id == "" {
		return nil, fmt.Errorf("empty map id")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file")
	}

	data, err := utils.ReadZipEntry(path, models.MapMetadataEntry)
	if err != nil {
		if errors.Is(err, utils.ErrEntryNotFound) {
			return nil, fmt.Errorf("no %s: %w", models.MapMetadataEntry, err)
		}
		return nil, err
	}

	name, author, err := parseMapMetadata(data)
	if err != nil {
		return nil, err
	}

	return &models.MapDescriptor{
		ID:          id,
		Name:        name,
		Author:      author,
		Slug:        slug.Make(name),
		ArchivePath: path,
		Size:        info.Size(),
	}, nil
}

func parseMapMetadata(data []byte) (name, author string, err error) {
	var meta models.MapMetadata
	if err := xml.Unmarshal(data, &meta); err != nil {
		return "", "", fmt.Errorf("invalid %s: %w", models.MapMetadataEntry, err)
	}
	if meta.Name == nil || strings.TrimSpace(*meta.Name) == "" {
		return "", "", fmt.Errorf("%w: name", ErrMissingAttribute)
	}
	if meta.Author == nil || strings.TrimSpace(*meta.Author) == "" {
		return "", "", fmt.Errorf("%w: author", ErrMissingAttribute)
	}
	return *meta.Name, *meta.Author, nil
}

func (c *Catalog) logSummary() {
	lines := make([]string, 0, len(c.maps))
	for _, m := range c.maps {
		lines = append(lines, fmt.Sprintf(" - %s by %s (%s)", m.Name, m.Author, m.ID))
	}
	logrus.Infof("🗺️  Maps (%d loaded, %d skipped):\n%s", len(c.maps), len(c.skipped), strings.Join(lines, "\n"))
}

// All returns the descriptors in catalog order. The slice is a copy.
func (c *Catalog) All() []models.MapDescriptor {
	out := make([]models.MapDescriptor, len(c.maps))
	copy(out, c.maps)
	return out
}

func (c *Catalog) Len() int {
	return len(c.maps)
}

func (c *Catalog) Skipped() []SkippedArchive {
	out := make([]SkippedArchive, len(c.skipped))
	copy(out, c.skipped)
	return out
}

// Get looks a map up by id.
func (c *Catalog) Get(id string) (models.MapDescriptor, bool) {
	raw, err := c.index.Txn(false).First(mapTable, "id", id)
	if err != nil || raw == nil {
		return models.MapDescriptor{}, false
	}
	return *raw.(*models.MapDescriptor), true
}

// ArchivePath resolves a map id to its archive on disk. Unknown ids and
// archives removed since startup both yield ErrMapNotFound.
func (c *Catalog) ArchivePath(id string) (string, error) {
	m, ok := c.Get(id)
	if !ok {
		return "", ErrMapNotFound
	}
	if _, err := os.Stat(m.ArchivePath); err != nil {
		if os.IsNotExist(err) {
			return "", ErrMapNotFound
		}
		return "", err
	}
	return m.ArchivePath, nil
}
