package questionnaire

import "math"

type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
	Percent  int `json:"percent"`
}

// ComputeProgress counts the catalog's questions holding at least one choice.
func ComputeProgress(cat *Catalog, s State) Progress {
	p := Progress{Total: len(cat.Questions)}
	for _, q := range cat.Questions {
		if len(s.questions[q.ID].Choices) > 0 {
			p.Answered++
		}
	}
	p.Percent = Percent(p.Answered, p.Total)
	return p
}

// Percent is round(answered/total*100), 0 when there is nothing to answer.
func Percent(answered, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(answered) / float64(total) * 100))
}
