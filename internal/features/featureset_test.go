package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/nba-ripple/internal/types"
)

// Every registered feature name must either be derived by the builder or
// resolve to a row field; a name that does neither would silently train on a
// column of missing values.
func TestEveryFeatureNameResolves(t *testing.T) {
	derived := map[string]bool{"pos_G": true, "pos_F": true, "pos_C": true, "is_home": true}
	row := &types.PlayerGame{}
	for _, name := range RippleFeatures {
		if derived[name] {
			continue
		}
		_, ok := row.FeatureValue(name)
		assert.True(t, ok, "feature %q does not resolve to a row field", name)
	}
}

func TestColumnHelpers(t *testing.T) {
	assert.Equal(t, "target_pts", TargetColumn("pts"))
	assert.Equal(t, "season_avg_fg_pct", SeasonAvgColumn("fg_pct"))
}
