package engine

import (
	"time"

	"github.com/faircombine/faircombine/internal/constants"
)

// RecalculateScores recomputes the six aggregate score fields and the
// not-applicable ratio from the flattened task set, then flips the
// session lifecycle status: finished once no task is queued or started,
// running otherwise (a cascade can re-open a finished session by
// resetting a child to queued).
//
// Every ratio uses the convention that a zero-count denominator yields
// 0, never a division error.
func (h *Handler) RecalculateScores() {
	var sumAll, sumEssential, sumNonEssential float64
	var sumApplicable, sumApplicableEss, sumApplicableNon float64
	var countAll, countEssential, countNonEssential int
	var countApplicable, countApplicableEss, countApplicableNon int
	var countExempt, countUnresolved int

	for _, task := range h.tasksByID {
		countAll++
		sumAll += task.Score

		applicable := !task.Status.Exempt()
		if !applicable {
			countExempt++
		}
		if task.Status.Unresolved() {
			countUnresolved++
		}
		if applicable {
			countApplicable++
			sumApplicable += task.Score
		}

		if task.Priority.Essential() {
			countEssential++
			sumEssential += task.Score
			if applicable {
				countApplicableEss++
				sumApplicableEss += task.Score
			}
		} else {
			countNonEssential++
			sumNonEssential += task.Score
			if applicable {
				countApplicableNon++
				sumApplicableNon += task.Score
			}
		}
	}

	s := h.session
	s.ScoreAll = ratio(sumAll, countAll)
	s.ScoreAllEssential = ratio(sumEssential, countEssential)
	s.ScoreAllNonEssential = ratio(sumNonEssential, countNonEssential)
	s.ScoreApplicable = ratio(sumApplicable, countApplicable)
	s.ScoreApplicableEssential = ratio(sumApplicableEss, countApplicableEss)
	s.ScoreApplicableNonEssential = ratio(sumApplicableNon, countApplicableNon)
	s.RatioNotApplicable = ratio(float64(countExempt), countAll)

	if countUnresolved == 0 {
		s.Status = constants.SessionStatusFinished
	} else {
		s.Status = constants.SessionStatusRunning
	}
	s.UpdatedAt = time.Now().UTC()
}

// ratio divides sum by count, mapping an empty partition to 0.
func ratio(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
