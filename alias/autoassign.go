package alias

import "github.com/gogpu/rendergraph/types"

// scoreCoefficients bundles the threshold and criticality/materialized
// penalty weights for one AutoAliasMode (§4.6 "Auto-assignment").
type scoreCoefficients struct {
	threshold          float64
	criticalityWeight  float64
	materializedWeight float64
}

func coefficientsFor(mode types.AutoAliasMode) (scoreCoefficients, bool) {
	switch mode {
	case types.AutoAliasConservative:
		return scoreCoefficients{threshold: 1.0, criticalityWeight: 0.1, materializedWeight: 0.5}, true
	case types.AutoAliasBalanced:
		return scoreCoefficients{threshold: 0.25, criticalityWeight: 0.05, materializedWeight: 0.25}, true
	case types.AutoAliasAggressive:
		return scoreCoefficients{threshold: -0.5, criticalityWeight: 0.01, materializedWeight: 0.1}, true
	default:
		return scoreCoefficients{}, false
	}
}

const bytesPerMB = 1024 * 1024

// score computes benefitMB - penalty*criticality - penalty*materializedAtCompile.
func score(c *Candidate, coef scoreCoefficients) float64 {
	benefitMB := float64(c.SizeBytes) / bytesPerMB
	penalty := coef.criticalityWeight * float64(c.MaxNodeCriticality)
	if c.IsMaterializedAtCompile {
		penalty += coef.materializedWeight
	}
	return benefitMB - penalty
}

// AutoAssign scores every candidate with no manual pool hint and routes
// the ones clearing the mode's threshold into the single implicit global
// pool, overwriting their PoolID; the ones below the threshold are removed
// from candidates, so they are not aliased. Manually-assigned candidates and
// candidates under AutoAliasOff are left untouched (§4.6 "Auto-
// assignment").
func AutoAssign(candidates map[uint64]*Candidate, mode types.AutoAliasMode) {
	coef, enabled := coefficientsFor(mode)
	if !enabled {
		return
	}
	for id, c := range candidates {
		if c.ManualPoolAssigned {
			continue
		}
		if score(c, coef) >= coef.threshold {
			c.PoolID = defaultPoolID
		} else {
			delete(candidates, id)
		}
	}
}
