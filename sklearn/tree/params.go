package tree

import (
	"github.com/YuminosukeSato/autotune/core/model"
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// set applies a parameter map. criteria lists the accepted criterion names.
func (p *params) set(estimator string, values map[string]interface{}, criteria ...string) error {
	for key, value := range values {
		var err error
		switch key {
		case "criterion":
			var c string
			if c, err = model.ParamString(key, value); err == nil {
				if !contains(criteria, c) {
					return errors.NewValidationError(key, "unsupported criterion", c)
				}
				p.criterion = c
			}
		case "max_depth":
			p.maxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			p.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			p.minSamplesLeaf, err = model.ParamInt(key, value)
		case "max_features":
			p.maxFeatures, err = model.ParamInt(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			p.randomState = int64(seed)
		default:
			return model.UnknownParam(estimator, key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
