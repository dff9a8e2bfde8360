package services

import (
	"fmt"
	"sort"
	"strings"

	"zip-market-etl/models"
	"zip-market-etl/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

func (s *SummaryService) Generate(records map[string]*models.RegionRecord) *models.Summary {
	summary := &models.Summary{
		PeriodCounts: make(map[string]int),
		Coverage:     make(map[string]int),
		Averages:     make(map[string]float64),
	}

	if len(records) == 0 {
		return summary
	}

	summary.ZipCount = len(records)

	totals := make(map[string]float64)
	for _, rec := range records {
		summary.PeriodCounts[rec.PeriodEnd]++
		if summary.NewestPeriod == "" || rec.PeriodEnd > summary.NewestPeriod {
			summary.NewestPeriod = rec.PeriodEnd
		}
		if summary.OldestPeriod == "" || rec.PeriodEnd < summary.OldestPeriod {
			summary.OldestPeriod = rec.PeriodEnd
		}

		for i, v := range rec.Values() {
			if v == nil {
				continue
			}
			name := models.MetricFields[i]
			summary.Coverage[name]++
			totals[name] += *v
		}
	}

	for name, total := range totals {
		summary.Averages[name] = round2(total / float64(summary.Coverage[name]))
	}

	s.logger.Debug("[summary] %d zips, periods %s..%s", summary.ZipCount, summary.OldestPeriod, summary.NewestPeriod)

	return summary
}

func (s *SummaryService) Print(r *models.Summary, stats ReduceStats) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  ZIP MARKET TRACKER RUN SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Rows\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Data rows read        : \033[1m%d\033[0m\n", stats.Rows)
	fmt.Printf("  Filtered out          : %d\n", stats.Filtered)
	fmt.Printf("  Without a 5-digit zip : %d\n", stats.NoZip)
	fmt.Printf("  All metrics null      : %d\n", stats.AllNull)
	fmt.Printf("  Superseded by newer   : %d\n", stats.Replaced)
	fmt.Printf("  Older than retained   : %d\n", stats.Stale)
	fmt.Printf("  Same-period duplicates: %d\n", stats.TiesDiscarded)
	fmt.Println()

	fmt.Printf("\033[1;33m  Zips\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Zip codes retained : \033[1m%d\033[0m\n", r.ZipCount)
	if r.ZipCount > 0 {
		fmt.Printf("  Newest period_end  : %s\n", r.NewestPeriod)
		fmt.Printf("  Oldest period_end  : %s\n", r.OldestPeriod)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Metrics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, name := range models.MetricFields {
		if r.Coverage[name] == 0 {
			fmt.Printf("  %-16s no values\n", name)
			continue
		}
		fmt.Printf("  %-16s avg \033[1;32m%.2f\033[0m over %d zips\n",
			name, r.Averages[name], r.Coverage[name])
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Latest Periods\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, pc := range topPeriods(r.PeriodCounts, 5) {
		fmt.Printf("  %-12s %d zips\n", pc.period, pc.count)
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

type periodCount struct {
	period string
	count  int
}

// topPeriods returns the n most recent periods, newest first.
func topPeriods(counts map[string]int, n int) []periodCount {
	out := make([]periodCount, 0, len(counts))
	for p, c := range counts {
		out = append(out, periodCount{p, c})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].period > out[j].period
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func round2(f float64) float64 {
	if f < 0 {
		return -round2(-f)
	}
	return float64(int64(f*100+0.5)) / 100
}
