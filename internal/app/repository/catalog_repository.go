package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

// Snapshots maps a catalog row id to its rendered fields.
type Snapshots map[uint]map[string]interface{}

// CatalogRepository loads documents from the collection a related model
// points at.
type CatalogRepository interface {
	WithTx(tx *gorm.DB) CatalogRepository
	FindSnapshots(ctx context.Context, kind model.ModelKind, ids []uint) (Snapshots, error)
}

type snapshotLoader func(db *gorm.DB, ids []uint) (Snapshots, error)

var snapshotLoaders = map[model.ModelKind]snapshotLoader{
	model.KindJerseyType:         loadSnapshots[model.JerseyType],
	model.KindDesignTemplate:     loadSnapshots[model.DesignTemplate],
	model.KindPattern:            loadSnapshots[model.Pattern],
	model.KindColorSwatch:        loadSnapshots[model.ColorSwatch],
	model.KindFeatureMenu:        loadSnapshots[model.FeatureMenu],
	model.KindCustomColorSection: loadSnapshots[model.CustomColorSection],
	model.KindFont:               loadSnapshots[model.Font],
	model.KindPlacementZone:      loadSnapshots[model.PlacementZone],
}

// ErrUnknownModelKind is returned for a kind with no registered collection.
var ErrUnknownModelKind = errors.New("unknown catalog model kind")

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) WithTx(tx *gorm.DB) CatalogRepository {
	return &catalogRepository{db: tx}
}

// FindSnapshots returns the rows of kind whose ids are given. Missing ids
// are absent from the result.
func (r *catalogRepository) FindSnapshots(ctx context.Context, kind model.ModelKind, ids []uint) (Snapshots, error) {
	load, ok := snapshotLoaders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModelKind, kind)
	}
	if len(ids) == 0 {
		return Snapshots{}, nil
	}

	snapshots, err := load(r.db.WithContext(ctx), ids)
	if err != nil {
		logger.Error("Failed to load catalog snapshots", err, map[string]interface{}{
			"kind": kind,
			"ids":  ids,
		})
		return nil, err
	}
	return snapshots, nil
}

func loadSnapshots[T model.CatalogItem](db *gorm.DB, ids []uint) (Snapshots, error) {
	var items []T
	if err := db.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}

	out := make(Snapshots, len(items))
	for _, item := range items {
		snap, err := model.Snapshot(item)
		if err != nil {
			return nil, err
		}
		out[item.CatalogID()] = snap
	}
	return out, nil
}
