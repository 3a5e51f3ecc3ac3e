// Package flagx holds command-line helpers shared by the userdir binaries.
// Several independent parsers (JSON config lookup, server flags, usersctl
// subcommands) read the same os.Args, so each one filters the arguments
// down to the flags it owns before calling flag.FlagSet.Parse.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs keeps only the flags listed in allowed, together with their
// values. Both "-f value" and "-f=value" forms are recognised. A token
// following an allowed flag is treated as its value unless it starts with
// a dash. The result is never nil.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}

	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, ok := known[name]; ok {
				out = append(out, arg)
			}
			continue
		}

		if _, ok := known[arg]; !ok {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// ConfigFile returns the JSON config path given with -c or -config, or an
// empty string when neither is present. When both appear the last wins.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}

// JsonConfigFlags is ConfigFile applied to the process arguments.
func JsonConfigFlags() string {
	return ConfigFile(os.Args[1:])
}

// SplitCommand separates a leading subcommand from the remaining arguments.
// Flags given before the subcommand stay in rest, so
// "usersctl -d x create -n bob" yields ("create", ["-d" "x" "-n" "bob"]).
func SplitCommand(args []string) (string, []string) {
	rest := make([]string, 0, len(args))
	cmd := ""
	for i := 0; i < len(args); i++ {
		a := args[i]
		if cmd == "" && !strings.HasPrefix(a, "-") {
			if i > 0 && strings.HasPrefix(args[i-1], "-") && !strings.Contains(args[i-1], "=") {
				// value of the preceding flag
				rest = append(rest, a)
				continue
			}
			cmd = a
			continue
		}
		rest = append(rest, a)
	}
	return cmd, rest
}
