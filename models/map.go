// models/map.go
package models

// MapArchiveExt is the extension of packaged map archives.
const MapArchiveExt = ".skm"

// MapMetadataEntry is the archive entry holding the map's metadata.
const MapMetadataEntry = "map.xml"

// MapDescriptor is one entry of the map catalog, built once at startup.
type MapDescriptor struct {
	ID     string `json:"id"` // archive filename without MapArchiveExt
	Name   string `json:"name"`
	Author string `json:"author"`
	Slug   string `json:"slug"`

	// 📁 Where the archive lives on disk — never sent to clients
	ArchivePath string `json:"-"`
	Size        int64  `json:"-"`
}

// MapMetadata mirrors the root element of map.xml. Only the two attributes
// the catalog needs are read; the rest of the document is ignored.
type MapMetadata struct {
	Name   *string `xml:"name,attr"`
	Author *string `xml:"author,attr"`
}
