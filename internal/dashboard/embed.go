package dashboard

import "embed"

//go:embed data/*.csv
var dataFS embed.FS

// embedded returns a generator for one bundled CSV.
func embedded(name string) func() []byte {
	return func() []byte {
		b, err := dataFS.ReadFile("data/" + name)
		if err != nil {
			panic("dashboard: missing embedded " + name)
		}
		return b
	}
}
