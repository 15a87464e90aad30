package cli

import "fmt"

// NoArgs rejects any positional args.
func NoArgs(args []string) error {
	if len(args) > 0 {
		return usageErrorf("unexpected argument: %s", args[0])
	}
	return nil
}

// ExactArgs returns an ArgsFunc that requires exactly n args.
func ExactArgs(n int) ArgsFunc {
	return RangeArgs(n, n)
}

// MinimumArgs returns an ArgsFunc that requires at least n args.
func MinimumArgs(n int) ArgsFunc {
	return RangeArgs(n, -1)
}

// RangeArgs returns an ArgsFunc that requires between min and max args, inclusive. A negative max means no upper bound.
func RangeArgs(min, max int) ArgsFunc {
	return func(args []string) error {
		if len(args) >= min && (max < 0 || len(args) <= max) {
			return nil
		}
		return usageErrorf("expected %s, got %d", argCount(min, max), len(args))
	}
}

// NamedArgs returns an ArgsFunc that requires one arg per name. Errors name the first missing arg, or quote the first extra one.
func NamedArgs(names ...string) ArgsFunc {
	return func(args []string) error {
		switch {
		case len(args) < len(names):
			return usageErrorf("missing %s", names[len(args)])
		case len(args) > len(names):
			return usageErrorf("unexpected argument: %s", args[len(names)])
		}
		return nil
	}
}

func argCount(min, max int) string {
	switch {
	case min == max:
		return pluralArgs(min)
	case max < 0:
		return "at least " + pluralArgs(min)
	default:
		return fmt.Sprintf("%d-%d args", min, max)
	}
}

func pluralArgs(n int) string {
	if n == 1 {
		return "1 arg"
	}
	return fmt.Sprintf("%d args", n)
}
