// Package export renders the scanned result set as CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"sweep_server/core/port/in"
	"sweep_server/pkg/apperr"
)

// Views the exporter knows.
const (
	ViewSenders = "senders"
	ViewDomains = "domains"
)

// Service writes CSV snapshots of the current in-memory state. It reads
// through the scan service and never triggers a scan; an empty result set
// yields the header row only.
type Service struct {
	scans in.ScanService
}

// NewService creates an export service.
func NewService(scans in.ScanService) *Service {
	return &Service{scans: scans}
}

// ExportCSV renders the requested view. view defaults to senders; accountID
// empty means all accounts.
func (s *Service) ExportCSV(view, accountID string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	switch view {
	case ViewSenders, "":
		if err := s.writeSenders(w, accountID); err != nil {
			return nil, err
		}
	case ViewDomains:
		if err := s.writeDomains(w, accountID); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.BadRequest("unknown view: " + view)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperr.InternalWithError(err)
	}
	return buf.Bytes(), nil
}

func (s *Service) writeSenders(w *csv.Writer, accountID string) error {
	if err := w.Write([]string{"name", "email", "domain", "count", "size", "hasUnsubscribe"}); err != nil {
		return err
	}
	for _, row := range s.scans.Senders(accountID, 0) {
		rec := []string{
			row.Name,
			row.Email,
			row.Domain,
			strconv.Itoa(row.Count),
			strconv.FormatInt(row.TotalSize, 10),
			strconv.FormatBool(row.HasUnsubscribe),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeDomains(w *csv.Writer, accountID string) error {
	if err := w.Write([]string{"domain", "senderCount", "totalCount", "totalSize"}); err != nil {
		return err
	}
	for _, row := range s.scans.Domains(accountID, 0) {
		rec := []string{
			row.Domain,
			strconv.Itoa(row.SenderCount),
			strconv.Itoa(row.TotalCount),
			strconv.FormatInt(row.TotalSize, 10),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

var _ in.ExportService = (*Service)(nil)
