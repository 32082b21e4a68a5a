// Package autotune is a statistical decision engine for tabular data.
//
// Given a dataset and a requested target and feature selection, autotune
// checks that the selection is usable, ranks the candidate features, tunes
// a set of model families with cross-validated hyperparameter search and
// reports which family performed best.
//
// # Installation
//
//	go get github.com/YuminosukeSato/autotune
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/autotune/dataset"
//	    "github.com/YuminosukeSato/autotune/engine"
//	)
//
//	func main() {
//	    ds := dataset.MustNew(
//	        dataset.NewNumeric("sqft", []float64{850, 1200, 1430, 1710, 2050, 2400}),
//	        dataset.NewCategorical("city", []string{"a", "b", "a", "b", "a", "b"}),
//	        dataset.NewNumeric("price", []float64{170, 250, 280, 350, 400, 490}),
//	    )
//
//	    d, err := engine.New(nil).Run(context.Background(), ds, engine.Request{
//	        Target:   "price",
//	        Features: []string{"sqft", "city"},
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Print(d.Report.Summary())
//	}
//
// # Packages
//
//   - dataset: typed columns, CSV loading with type inference
//   - profile: column quality profiles and scores
//   - selection: target and feature validation and recommendation
//   - importance: feature ranking from random forest, mutual information and correlation
//   - tuning: model family registry and cross-validated hyperparameter search
//   - comparison: tuned versus default scores and best model selection
//   - engine: the end-to-end decision flow
//   - sklearn/...: the estimators and model selection utilities behind the engine
//   - metrics: R², accuracy and error metrics
//   - preprocessing: design matrices and standard scaling
//   - core/model, core/parallel: estimator interfaces and the bounded worker pool
//
// # Determinism
//
// Every randomised step (bootstrap samples, feature subsets, mutual
// information jitter, fold shuffling, candidate sampling) is seeded, so two
// runs with the same seed produce the same ranking and the same best
// parameters regardless of the number of workers.
//
// # Command line
//
// cmd/autotune exposes the same flow over CSV files:
//
//	autotune run houses.csv --target price --features sqft,city --summary
//
// # License
//
// autotune is released under the MIT License.
package autotune
