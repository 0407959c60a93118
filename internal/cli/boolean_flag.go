package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName       = "bool"
	booleanTrueLiteral        = "true"
	booleanAcceptedValues     = "true, false, yes, no, on, off, 1, 0"
	booleanInvalidValueFormat = "invalid boolean value %q for --%s; accepted values: %s"
)

// booleanLiterals maps every spelling accepted on the command line to its value.
var booleanLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// booleanFlag adapts a bool target to pflag.Value with permissive literal
// parsing, so "--copy=no" and the bare "--copy" both work.
type booleanFlag struct {
	target   *bool
	flagName string
}

func (flag *booleanFlag) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanTrueLiteral
	}
	parsed, known := booleanLiterals[normalized]
	if !known {
		return fmt.Errorf(booleanInvalidValueFormat, input, flag.flagName, booleanAcceptedValues)
	}
	*flag.target = parsed
	return nil
}

func (flag *booleanFlag) String() string {
	if flag == nil || flag.target == nil {
		return booleanTrueLiteral
	}
	return strconv.FormatBool(*flag.target)
}

func (flag *booleanFlag) Type() string {
	return booleanFlagTypeName
}

// registerBooleanFlag installs a boolean flag that accepts the bare form
// (--name), attached values (--name=no), and, after argument normalization,
// detached values (--name no).
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&booleanFlag{target: target, flagName: name}, name, usage)
	if registered := flagSet.Lookup(name); registered != nil {
		registered.DefValue = strconv.FormatBool(defaultValue)
		registered.NoOptDefVal = booleanTrueLiteral
	}
}

// normalizeBooleanArguments rewrites "--flag value" into "--flag=value" for
// every boolean flag in the command tree whose next argument is a boolean
// literal. pflag would otherwise treat the detached literal as a positional
// argument.
func normalizeBooleanArguments(command *cobra.Command, arguments []string) []string {
	booleanFlagNames := map[string]struct{}{}
	collectBooleanFlagNames(command, booleanFlagNames)
	if len(booleanFlagNames) == 0 {
		return arguments
	}

	normalized := make([]string, 0, len(arguments))
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		currentArgument := arguments[argumentIndex]
		if currentArgument == "--" {
			normalized = append(normalized, arguments[argumentIndex:]...)
			break
		}
		normalized = append(normalized, currentArgument)
		if !strings.HasPrefix(currentArgument, "--") || strings.Contains(currentArgument, "=") {
			continue
		}
		if _, isBoolean := booleanFlagNames[strings.TrimPrefix(currentArgument, "--")]; !isBoolean {
			continue
		}
		if argumentIndex+1 >= len(arguments) {
			continue
		}
		nextArgument := arguments[argumentIndex+1]
		if strings.HasPrefix(nextArgument, "-") {
			continue
		}
		if _, isLiteral := booleanLiterals[strings.ToLower(strings.TrimSpace(nextArgument))]; isLiteral {
			normalized[len(normalized)-1] = currentArgument + "=" + nextArgument
			argumentIndex++
		}
	}
	return normalized
}

// collectBooleanFlagNames gathers boolean flag names across the command tree.
func collectBooleanFlagNames(command *cobra.Command, names map[string]struct{}) {
	gather := func(flagSet *pflag.FlagSet) {
		flagSet.VisitAll(func(registered *pflag.Flag) {
			if registered.Value != nil && registered.Value.Type() == booleanFlagTypeName {
				names[registered.Name] = struct{}{}
			}
		})
	}
	gather(command.PersistentFlags())
	gather(command.Flags())
	for _, childCommand := range command.Commands() {
		collectBooleanFlagNames(childCommand, names)
	}
}
