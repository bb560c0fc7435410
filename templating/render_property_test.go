package templating_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/byte4ever/boiler/snippet"
	"github.com/byte4ever/boiler/templating"
)

// genNames produces distinct bl__ variable names.
func genNames() gopter.Gen {
	return gen.SliceOfN(
		6,
		gen.RegexMatch(`^[A-Z]{1,8}$`),
	).Map(func(raw []string) []string {
		seen := make(map[string]bool, len(raw))
		names := make([]string, 0, len(raw))

		for _, r := range raw {
			name := "bl__" + r
			if seen[name] {
				continue
			}

			seen[name] = true
			names = append(names, name)
		}

		return names
	})
}

func declareAll(names []string, value string) []snippet.Variable {
	vars := make([]snippet.Variable, 0, len(names))
	for _, name := range names {
		vars = append(vars, snippet.Variable{
			Name:       name,
			Default:    value,
			HasDefault: true,
		})
	}

	return vars
}

func TestRenderProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("no declared token survives a full render", prop.ForAll(
		func(names []string, value string) bool {
			body := strings.Join(names, " + ")

			got, err := templating.Render(body, declareAll(names, value), nil)
			if err != nil {
				return false
			}

			return !strings.Contains(got, "bl__")
		},
		genNames(),
		gen.AlphaString().SuchThat(func(s string) bool {
			return !strings.Contains(s, "bl_")
		}),
	))

	properties.Property("missing variable is named in the error", prop.ForAll(
		func(names []string, idx int) bool {
			if len(names) == 0 {
				return true
			}

			missing := names[idx%len(names)]
			vars := declareAll(names, "v")

			for i := range vars {
				if vars[i].Name == missing {
					vars[i].HasDefault = false
					vars[i].Default = ""
				}
			}

			_, err := templating.Render(strings.Join(names, " "), vars, nil)

			var mve *templating.MissingVariableError
			if !errors.As(err, &mve) {
				return false
			}

			return mve.Name == missing
		},
		genNames(),
		gen.IntRange(0, 100),
	))

	properties.Property("declaration order does not change output", prop.ForAll(
		func(names []string) bool {
			vars := make([]snippet.Variable, 0, len(names))
			for _, name := range names {
				vars = append(vars, snippet.Variable{
					Name:       name,
					Default:    strings.ToLower(name),
					HasDefault: true,
				})
			}

			reversed := make([]snippet.Variable, len(vars))
			for i, v := range vars {
				reversed[len(vars)-1-i] = v
			}

			body := strings.Join(names, "|") + "|" + strings.Join(names, "")

			first, err1 := templating.Render(body, vars, nil)
			second, err2 := templating.Render(body, reversed, nil)

			return err1 == nil && err2 == nil && first == second
		},
		genNames(),
	))

	properties.Property("longer token wins over its prefix", prop.ForAll(
		func(root string, suffix string) bool {
			short := "bl__" + root
			long := short + suffix

			vars := []snippet.Variable{
				{Name: short, Default: "S", HasDefault: true},
				{Name: long, Default: "L", HasDefault: true},
			}

			got, err := templating.Render(long+" "+short, vars, nil)

			return err == nil && got == "L S"
		},
		gen.RegexMatch(`^[A-Z]{1,6}$`),
		gen.RegexMatch(`^_[A-Z]{1,6}$`),
	))

	properties.TestingRun(t)
}
