package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"gridreplay/internal/dataset"
	"gridreplay/internal/logger"
	"gridreplay/internal/models"
	"gridreplay/internal/replay"
	"gridreplay/internal/repository"

	"github.com/google/uuid"
)

// ErrInvalidDataset wraps every reason an uploaded file could not be decoded.
var ErrInvalidDataset = errors.New("invalid dataset")

type DatasetService struct {
	repo repository.DatasetRepo
	log  *logger.Logger
}

func NewDatasetService(repo repository.DatasetRepo, log *logger.Logger) *DatasetService {
	if log == nil {
		log = logger.Nop()
	}
	return &DatasetService{repo: repo, log: log}
}

// ImportDataset decodes a .csv or .xlsx upload and stores its rows.
func (s *DatasetService) ImportDataset(ctx context.Context, filename string, r io.Reader) (DatasetImport, error) {
	format, err := dataset.FormatFromFilename(filename)
	if err != nil {
		return DatasetImport{}, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	res, err := dataset.Decode(r, format)
	if err != nil {
		return DatasetImport{}, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if len(res.Rows) == 0 {
		return DatasetImport{}, replay.ErrEmptyDataset
	}

	d := models.Dataset{
		ID:        uuid.NewString(),
		Name:      filepath.Base(filename),
		Format:    string(format),
		RowCount:  len(res.Rows),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, d, res.Rows); err != nil {
		return DatasetImport{}, err
	}

	s.log.Infow("dataset_imported", "dataset", d.ID, "name", d.Name, "rows", d.RowCount, "issues", len(res.Issues))
	issues := res.Issues
	if issues == nil {
		issues = []string{}
	}
	return DatasetImport{Dataset: d, Issues: issues}, nil
}

func (s *DatasetService) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	return s.repo.List(ctx)
}
