package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
)

// ReportStore keeps comparison reports in memory, keyed by report id
type ReportStore struct {
	reports map[string]*compare.Report
	mu      sync.RWMutex
}

func New() *ReportStore {
	return &ReportStore{
		reports: make(map[string]*compare.Report),
	}
}

func (s *ReportStore) Get(reportID string) (*compare.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, exists := s.reports[reportID]
	return report, exists
}

func (s *ReportStore) Set(report *compare.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ReportID] = report
}

// List returns every report, newest first
func (s *ReportStore) List() []*compare.Report {
	s.mu.RLock()
	result := make([]*compare.Report, 0, len(s.reports))
	for _, v := range s.reports {
		result = append(result, v)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].GeneratedAt.Equal(result[j].GeneratedAt) {
			return result[i].GeneratedAt.After(result[j].GeneratedAt)
		}
		return result[i].ReportID < result[j].ReportID
	})
	return result
}

func (s *ReportStore) Delete(reportID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.reports[reportID]
	delete(s.reports, reportID)
	return exists
}

func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
