package model

import "time"

// ScanRequest はスキャン要求を表す。
// DaysLimitとMaxExecutionTime（分）は排他的な予算モード。
type ScanRequest struct {
	FetchUnknown     bool
	DaysLimit        int
	MaxExecutionTime int
}

// BudgetMode はスキャンの予算モード。
type BudgetMode string

const (
	// BudgetUnlimited は日付フィルタも全体期限も持たないモード。
	BudgetUnlimited BudgetMode = "unlimited"
	// BudgetDays は日数ウィンドウで候補を絞り込むモード。
	BudgetDays BudgetMode = "days"
	// BudgetTime は実行時間の上限でフェッチを打ち切るモード。
	BudgetTime BudgetMode = "time"
)

const (
	// FallbackWindowDays は時間予算モードで使用する日付ウィンドウ（日）。
	FallbackWindowDays = 180
	// MaxDaysLimit はdays_limitに指定できる上限（日）。
	MaxDaysLimit = 3650
	// MaxExecutionMinutes はmax_execution_timeに指定できる上限（分）。
	MaxExecutionMinutes = 1440
)

// Budget はスキャン要求から解決した実効予算。
type Budget struct {
	Mode     BudgetMode
	Window   time.Duration // 0は日付フィルタなし
	Deadline time.Time     // ゼロ値は全体期限なし
}

// ResolveBudget はスキャン要求から実効予算を解決する。
// MaxExecutionTime > 0 の場合は時間予算モードを優先し、DaysLimitは無視する。
// 値は検証済みで上限以内であることを前提とする。
func ResolveBudget(req ScanRequest, now time.Time) Budget {
	switch {
	case req.MaxExecutionTime > 0:
		return Budget{
			Mode:     BudgetTime,
			Window:   FallbackWindowDays * 24 * time.Hour,
			Deadline: now.Add(time.Duration(req.MaxExecutionTime) * time.Minute),
		}
	case req.DaysLimit > 0:
		return Budget{
			Mode:   BudgetDays,
			Window: time.Duration(req.DaysLimit) * 24 * time.Hour,
		}
	default:
		return Budget{Mode: BudgetUnlimited}
	}
}

// SourceStatus はスキャン内でのソース単位のフェッチ結果。
type SourceStatus string

const (
	SourceStatusOK      SourceStatus = "ok"
	SourceStatusFailed  SourceStatus = "failed"
	SourceStatusTimeout SourceStatus = "timeout"
)

// SourceReport はソース単位のフェッチ結果の報告。
type SourceReport struct {
	Name       string
	URL        string
	Status     SourceStatus
	Error      string
	Candidates int
}

// ScanResult はスキャン1サイクルの結果。保存されない。
type ScanResult struct {
	SavedTrustedCount int
	UnknownArticles   []Article
	MatchedCount      int
	DuplicateCount    int
	Sources           []SourceReport
}

// SaveResult はトリアージ保存操作の結果。
type SaveResult struct {
	Saved   int
	Skipped int
}
