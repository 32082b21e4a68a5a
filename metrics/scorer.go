package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// Scorer は n×1 の正解と予測からスコア（大きいほど良い）を計算する
type Scorer func(yTrue, yPred mat.Matrix) (float64, error)

// R2Scorer は交差検証用のR²スコアラー。
// 検証foldの正解に分散がない場合、完全一致なら1、それ以外は0を返す。
func R2Scorer(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnPair("R2Scorer", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	score, err := R2Score(t, p)
	if errors.Is(err, ErrZeroVariance) {
		mse, mseErr := MSE(t, p)
		if mseErr != nil {
			return 0, mseErr
		}
		if mse == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return score, err
}

// AccuracyScorer は交差検証用の正解率スコアラー
func AccuracyScorer(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnPair("AccuracyScorer", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(t, p)
}
