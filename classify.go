package wheelhouse

// classify converts a raw distribution into either a ranked candidate or
// an unranked rejection for the given target. Pure function of its
// inputs.
//
// Installed directories carry no tag-encoded filename: they are always
// usable, so they rank with the synthetic worst rank and lose to any real
// tagged match.
func classify(dist FingerprintedDistribution, target Target) (RankedDistribution, *UnrankedDistribution) {
	if dist.Format != FormatWheel {
		return RankedDistribution{Dist: dist, Rank: WorstRank}, nil
	}

	eval, err := target.EvaluateTags(dist.Distribution)
	if err != nil {
		return RankedDistribution{}, &UnrankedDistribution{
			Dist:     dist,
			Reason:   ReasonMalformedName,
			ParseErr: err,
		}
	}

	if !eval.Applies {
		if eval.RequiresInterpreter != "" {
			return RankedDistribution{}, &UnrankedDistribution{
				Dist:                dist,
				Reason:              ReasonInterpreterMismatch,
				RequiresInterpreter: eval.RequiresInterpreter,
			}
		}
		return RankedDistribution{}, &UnrankedDistribution{
			Dist:          dist,
			Reason:        ReasonTagMismatch,
			AttemptedTags: eval.Attempted,
		}
	}

	return RankedDistribution{Dist: dist, Rank: eval.BestRank}, nil
}
