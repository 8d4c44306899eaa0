package core

import (
	"fmt"
	"path"
)

// ProviderName labels report and ledger titles.
const ProviderName = "DigitalOcean"

// SummaryFile is the monthly ledger view inside a month directory.
const SummaryFile = "monthly_summary.md"

// MonthDir returns "YYYY/MM".
func MonthDir(k MonthKey) string {
	return path.Join(fmt.Sprintf("%04d", k.Year), fmt.Sprintf("%02d", k.Month))
}

// SummaryPath returns the monthly ledger path, "YYYY/MM/monthly_summary.md".
func SummaryPath(k MonthKey) string {
	return path.Join(MonthDir(k), SummaryFile)
}

// DailyReportPath returns the daily report path, "YYYY/MM/DD.md".
func DailyReportPath(d Date) string {
	return path.Join(MonthDir(MonthOf(d)), fmt.Sprintf("%02d.md", d.Day()))
}
