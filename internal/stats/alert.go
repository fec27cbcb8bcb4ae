package stats

// AlertPolicy は日別件数の急増を判定する閾値。
// 直近WindowDays日のうち、件数がMinCount以上かつ
// 直前BaselineDays日の平均のRatio倍を超える日を警戒日とする。
type AlertPolicy struct {
	WindowDays   int
	BaselineDays int
	Ratio        float64
	MinCount     int
}

// DefaultAlertPolicy は既定の警戒判定閾値を返す。
func DefaultAlertPolicy() AlertPolicy {
	return AlertPolicy{WindowDays: 7, BaselineDays: 7, Ratio: 2.0, MinCount: 3}
}

// span は判定に必要な日数（判定対象＋基準期間）。
func (p AlertPolicy) span() int {
	return max(p.WindowDays, 0) + max(p.BaselineDays, 0)
}

// Count は日付昇順の日別件数から警戒日数を数える。
// countsの末尾WindowDays日を判定対象とし、基準期間が不足する日は利用可能な範囲の平均を使う。
func (p AlertPolicy) Count(counts []int) int {
	if p.WindowDays <= 0 || len(counts) == 0 {
		return 0
	}
	first := max(len(counts)-p.WindowDays, 0)

	alerts := 0
	for i := first; i < len(counts); i++ {
		c := counts[i]
		if c < p.MinCount {
			continue
		}
		if float64(c) > p.Ratio*p.baselineMean(counts, i) {
			alerts++
		}
	}
	return alerts
}

func (p AlertPolicy) baselineMean(counts []int, i int) float64 {
	from := max(i-p.BaselineDays, 0)
	if from >= i {
		return 0
	}
	sum := 0
	for _, c := range counts[from:i] {
		sum += c
	}
	return float64(sum) / float64(i-from)
}
