package repository

import (
	"dreamreel/config"
	"dreamreel/constant"
	"fmt"
	"path/filepath"
)

const (
	blobPrefix     = "archive/"
	sqliteFileName = "dreams.sqlite"
)

// NewDreamStore picks the backing store named by store.kind.
func NewDreamStore(cfg *config.Config) (DreamStore, error) {
	switch cfg.Store.Kind {
	case constant.StoreKindLocal:
		blob, err := NewFileBlob(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return NewBlobDreamStore(blob), nil
	case constant.StoreKindMinIO:
		return NewBlobDreamStore(NewMinIOBlob(cfg.Storage, cfg.MinIOBucket, blobPrefix)), nil
	case constant.StoreKindSQLite:
		return NewSQLiteDreamStore(filepath.Join(cfg.Store.Path, sqliteFileName)), nil
	case constant.StoreKindPostgres:
		return NewRepo(cfg.DB, cfg.IsDevelopment())
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

// NewProfileBackend keeps the profile next to the archive: in MinIO when it is
// configured, on disk otherwise.
func NewProfileBackend(cfg *config.Config) (BlobBackend, error) {
	if cfg.Storage != nil {
		return NewMinIOBlob(cfg.Storage, cfg.MinIOBucket, blobPrefix), nil
	}
	return NewFileBlob(cfg.Store.Path)
}
