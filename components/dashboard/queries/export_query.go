package queries

import (
	"bytes"
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// FrictionExportInput selects the friction grid to export. Empty topics or
// slots fall back to the defaults.
type FrictionExportInput struct {
	InstanceID string   `json:"instance_id"`
	Topics     []string `json:"topics"`
	Slots      []string `json:"time_slots"`
}

// CSVExport is a rendered CSV document.
type CSVExport struct {
	Filename string
	Body     []byte
}

// FrictionExportQuery renders friction data as CSV.
type FrictionExportQuery struct {
	repo dashboard.FrictionRepository
}

// NewFrictionExportQuery builds the query.
func NewFrictionExportQuery(repo dashboard.FrictionRepository) *FrictionExportQuery {
	return &FrictionExportQuery{repo: repo}
}

var _ gocommand.Querier[FrictionExportInput, CSVExport] = (*FrictionExportQuery)(nil)

// Query fetches the points and writes them as CSV.
func (q *FrictionExportQuery) Query(ctx context.Context, input FrictionExportInput) (CSVExport, error) {
	if q.repo == nil {
		return CSVExport{}, errors.New("friction export requires a repository")
	}
	topics := input.Topics
	if len(topics) == 0 {
		topics = dashboard.DefaultFrictionTopics
	}
	slots := input.Slots
	if len(slots) == 0 {
		slots = dashboard.DefaultFrictionSlots
	}
	points, err := q.repo.FetchFriction(ctx, dashboard.FrictionQuery{
		InstanceID: input.InstanceID,
		Topics:     topics,
		Slots:      slots,
	})
	if err != nil {
		return CSVExport{}, err
	}
	var buf bytes.Buffer
	if err := dashboard.WriteFrictionCSV(&buf, points); err != nil {
		return CSVExport{}, err
	}
	return CSVExport{Filename: dashboard.FrictionCSVFilename, Body: buf.Bytes()}, nil
}
