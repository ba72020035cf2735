package evaluation

import (
	"errors"

	"github.com/siherrmann/biolink/model"
)

var ErrLengthMismatch = errors.New("input lists must have the same length")

// PrecisionAtK is the fraction of the first k predictions found in groundTruth.
func PrecisionAtK(predicted []string, groundTruth model.IDSet, k int) float64 {
	if len(predicted) == 0 || len(groundTruth) == 0 {
		return 0
	}

	top := topK(predicted, k)
	if len(top) == 0 {
		return 0
	}
	return float64(countCorrect(top, groundTruth)) / float64(len(top))
}

// RecallAtK is the fraction of groundTruth found in the first k predictions.
func RecallAtK(predicted []string, groundTruth model.IDSet, k int) float64 {
	if len(predicted) == 0 || len(groundTruth) == 0 {
		return 0
	}
	return float64(countCorrect(topK(predicted, k), groundTruth)) / float64(len(groundTruth))
}

// F1AtK is the harmonic mean of PrecisionAtK and RecallAtK.
func F1AtK(predicted []string, groundTruth model.IDSet, k int) float64 {
	precision := PrecisionAtK(predicted, groundTruth, k)
	recall := RecallAtK(predicted, groundTruth, k)
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// MeanReciprocalRank returns 1/rank of the first correct prediction, or 0.
func MeanReciprocalRank(predicted []string, groundTruth model.IDSet) float64 {
	if rank := FirstCorrectRank(predicted, groundTruth); rank > 0 {
		return 1 / float64(rank)
	}
	return 0
}

// FirstCorrectRank returns the 1-indexed rank of the first correct prediction, or 0.
func FirstCorrectRank(predicted []string, groundTruth model.IDSet) int {
	for i, id := range predicted {
		if groundTruth.Contains(id) {
			return i + 1
		}
	}
	return 0
}

// CalculateMetrics averages the metrics of every case at the reported cutoffs.
// allScores is optional, if given it must have one entry per case.
func CalculateMetrics(allPredictions [][]string, allGroundTruth []model.IDSet, allScores [][]float64) (*model.Metrics, error) {
	if len(allPredictions) != len(allGroundTruth) {
		return nil, ErrLengthMismatch
	}
	if allScores != nil && len(allScores) != len(allPredictions) {
		return nil, ErrLengthMismatch
	}

	metrics := &model.Metrics{NumCases: len(allPredictions)}
	if metrics.NumCases == 0 {
		return metrics, nil
	}

	precisions := map[int]float64{}
	recalls := map[int]float64{}
	f1s := map[int]float64{}
	var reciprocalRanks float64
	var correctScores, incorrectScores []float64

	for i, predicted := range allPredictions {
		groundTruth := allGroundTruth[i]
		if len(predicted) == 0 {
			continue
		}
		metrics.NumCasesWithMatches++

		for _, k := range model.EvaluationKs {
			precisions[k] += PrecisionAtK(predicted, groundTruth, k)
			recalls[k] += RecallAtK(predicted, groundTruth, k)
			f1s[k] += F1AtK(predicted, groundTruth, k)
		}

		rr := MeanReciprocalRank(predicted, groundTruth)
		reciprocalRanks += rr
		if rr > 0 {
			metrics.NumCasesWithCorrectMatches++
		}

		if allScores == nil {
			continue
		}
		scores := allScores[i]
		for j, id := range predicted {
			if j >= len(scores) {
				break
			}
			if groundTruth.Contains(id) {
				correctScores = append(correctScores, scores[j])
			} else {
				incorrectScores = append(incorrectScores, scores[j])
			}
		}
	}

	n := float64(metrics.NumCases)
	for _, k := range model.EvaluationKs {
		metrics.SetAt(k, precisions[k]/n, recalls[k]/n, f1s[k]/n)
	}
	metrics.MeanReciprocalRank = reciprocalRanks / n

	metrics.AvgScoreCorrect = mean(correctScores)
	metrics.AvgScoreIncorrect = mean(incorrectScores)
	if len(correctScores) > 0 && len(incorrectScores) > 0 {
		difference := metrics.AvgScoreCorrect - metrics.AvgScoreIncorrect
		metrics.ScoreDifference = &difference
	}

	return metrics, nil
}

func topK(predicted []string, k int) []string {
	if k <= 0 {
		return nil
	}
	if k > len(predicted) {
		k = len(predicted)
	}
	return predicted[:k]
}

func countCorrect(predicted []string, groundTruth model.IDSet) int {
	correct := 0
	for _, id := range predicted {
		if groundTruth.Contains(id) {
			correct++
		}
	}
	return correct
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
