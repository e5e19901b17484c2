package engine

// NormalizedRequest is the outcome of C4+C5+command-line reconstruction: the
// env-prefix stripping, wrapper unwrapping, and the two command lines
// needed downstream (the original, as issued, and the effective one that
// policy and argv construction operate on).
type NormalizedRequest struct {
	EnvPrefix EnvPrefixResult
	Wrapper   WrapperParseResult

	// OriginalCommandLine is cmd+args exactly as issued, for echoing back to
	// the caller as cmdline.
	OriginalCommandLine string

	// EffectiveCommandLine is what the policy engine evaluates: for a
	// non-wrapper this is the same as OriginalCommandLine; for a wrapper it
	// is the unwrapped command string plus any trailing positional
	// parameters.
	EffectiveCommandLine string
}

// Normalize runs C4 (env-prefix stripping) and C5 (wrapper parsing) over
// cmd+args and reconstructs both the original and effective command lines
// used by the rest of the pipeline.
func Normalize(cmd string, args []string) (NormalizedRequest, error) {
	envResult, err := StripEnvPrefix(cmd, args)
	if err != nil {
		return NormalizedRequest{}, err
	}

	wrapperResult, err := ParseShellWrapper(envResult.Cmd, envResult.Args)
	if err != nil {
		return NormalizedRequest{}, err
	}

	original := ReconstructCommandLine(cmd, args)

	effective := original
	if wrapperResult.IsWrapper {
		unwrappedTokens := Tokenize(wrapperResult.CommandString)

		var trailing []string
		if wrapperResult.ArgsAfterCommandIndex < len(envResult.Args) {
			trailing = envResult.Args[wrapperResult.ArgsAfterCommandIndex:]
		}

		effectiveTokens := append(append([]string(nil), unwrappedTokens...), trailing...)
		effective = ReconstructCommandLine(effectiveTokens[0], effectiveTokens[1:])
	}

	return NormalizedRequest{
		EnvPrefix:            envResult,
		Wrapper:              wrapperResult,
		OriginalCommandLine:  original,
		EffectiveCommandLine: effective,
	}, nil
}
