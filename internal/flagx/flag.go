// Package flagx holds small helpers for parsing command-line style input:
// picking out the flags one component owns from a shared argument list,
// and splitting REPL tokens into positional arguments and key=value pairs.
package flagx

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

var ErrEmptyKey = errors.New("empty key in key=value pair")

// FilterArgs returns the subset of args that belongs to allowedFlags,
// keeping values that follow a flag as a separate token ("-p 4") and
// the combined form ("-p=4"). A token starting with "-" is never taken
// as a value. The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath extracts the JSON config file path given via -c or -config.
// The last occurrence wins; an empty string means no file was requested.
func ConfigPath(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}

// SplitKeyValues separates REPL tokens into plain positional arguments
// and key=value pairs. Later duplicates override earlier ones.
//
//	pos, kv, _ := SplitKeyValues([]string{"cards/", "game=Pokemon", "set=Base"})
//	// pos == ["cards/"], kv == {"game": "Pokemon", "set": "Base"}
func SplitKeyValues(tokens []string) ([]string, map[string]string, error) {
	positional := make([]string, 0, len(tokens))
	kv := make(map[string]string)

	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || strings.HasPrefix(tok, "-") {
			positional = append(positional, tok)
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, nil, fmt.Errorf("%q: %w", tok, ErrEmptyKey)
		}
		kv[key] = strings.TrimSpace(value)
	}

	return positional, kv, nil
}
