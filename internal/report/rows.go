package report

import (
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
)

// RankingRow is one producer of one report, flattened for tabular output
type RankingRow struct {
	ReportID          string   `parquet:"report_id" json:"report_id"`
	DocumentID        string   `parquet:"document_id" json:"document_id"`
	ProducerID        string   `parquet:"producer_id" json:"producer_id"`
	Status            string   `parquet:"status" json:"status"`
	Rank              int32    `parquet:"rank" json:"rank"`
	Score             float64  `parquet:"score" json:"score"`
	Winner            bool     `parquet:"winner" json:"winner"`
	TextLength        int64    `parquet:"text_length" json:"text_length"`
	WordCount         int64    `parquet:"word_count" json:"word_count"`
	CompletenessRatio float64  `parquet:"completeness_ratio" json:"completeness_ratio"`
	TableCount        int32    `parquet:"table_count" json:"table_count"`
	ErrorCount        int32    `parquet:"error_count" json:"error_count"`
	ProcessingTimeMs  int64    `parquet:"processing_time_ms" json:"processing_time_ms"`
	StructureDensity  float64  `parquet:"structure_density" json:"structure_density"`
	ErrorMessages     []string `parquet:"error_messages,list" json:"error_messages"`
}

// Rows flattens the rankings of every report, keeping rank order
func Rows(reports []*compare.Report) []RankingRow {
	var rows []RankingRow
	for _, r := range reports {
		winner, _ := r.Winner()
		for _, rk := range r.Rankings {
			rows = append(rows, RankingRow{
				ReportID:          r.ReportID,
				DocumentID:        r.DocumentID,
				ProducerID:        rk.ProducerID,
				Status:            string(rk.Status),
				Rank:              int32(rk.Rank),
				Score:             rk.Score,
				Winner:            rk.ProducerID == winner,
				TextLength:        int64(rk.Metrics.TextLength),
				WordCount:         int64(rk.Metrics.WordCount),
				CompletenessRatio: rk.Metrics.CompletenessRatio,
				TableCount:        int32(rk.Metrics.TableCount),
				ErrorCount:        int32(rk.Metrics.ErrorCount),
				ProcessingTimeMs:  rk.Metrics.ProcessingTimeMs,
				StructureDensity:  rk.Metrics.StructureDensity,
				ErrorMessages:     append([]string(nil), rk.ErrorMessages...),
			})
		}
	}
	return rows
}

func joinMessages(msgs []string) string {
	return strings.Join(msgs, "; ")
}
