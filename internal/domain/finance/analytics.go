package finance

import "math"

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FillMonths returns twelve month totals, zero where sparse has no entry.
func FillMonths(sparse map[int]float64) []MonthTotal {
	out := make([]MonthTotal, 12)
	for m := 1; m <= 12; m++ {
		out[m-1] = MonthTotal{Month: m, Amount: round2(sparse[m])}
	}
	return out
}

// Utilization completes a budget row from its budget and approved spend.
func Utilization(d DepartmentBudget) DepartmentBudget {
	d.Spent = round2(d.Spent)
	d.Remaining = round2(d.Budget - d.Spent)
	if d.Budget > 0 {
		d.UtilizationPct = math.Round(d.Spent/d.Budget*1000) / 10
	}
	return d
}

func sumStatus(rows []StatusTotal) float64 {
	total := 0.0
	for _, r := range rows {
		total += r.Amount
	}
	return round2(total)
}
