// Package model はチューニング対象となる推定器のインターフェースを定義します。
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は fit と predict を持つ不透明な学習器です。
// チューニングはこのインターフェースだけを通してモデルを扱います。
type Estimator interface {
	Fitter
	Predictor
}

// Classifier は確率を出力できる分類器のインターフェース
type Classifier interface {
	Estimator
	// PredictProba は各クラスの確率を返す（列はClasses()の順）
	PredictProba(X mat.Matrix) (mat.Matrix, error)
	// Classes は学習時に観測したクラスラベルを昇順で返す
	Classes() []float64
}

// ParamSetter はハイパーパラメータを名前で設定できるモデルのインターフェース
type ParamSetter interface {
	// SetParams は未知のキーや不正な値に対してエラーを返す
	SetParams(params map[string]interface{}) error
}

// ParamGetter は現在のハイパーパラメータを公開するモデルのインターフェース
type ParamGetter interface {
	GetParams() map[string]interface{}
}

// FeatureImporter は学習後に特徴量重要度を公開するモデルのインターフェース
type FeatureImporter interface {
	// FeatureImportances は合計1に正規化された重要度を返す
	FeatureImportances() ([]float64, error)
}
