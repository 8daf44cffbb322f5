package workflow

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// keywordSet holds the signal vocabularies used to classify research
// findings into personalization hooks. The lists live in keywords.yaml so
// they can be tuned without touching code.
type keywordSet struct {
	RecentEvent  []string `yaml:"recent_event"`
	PainPoint    []string `yaml:"pain_point"`
	GrowthSignal []string `yaml:"growth_signal"`
	Technology   []string `yaml:"technology"`
}

var keywords = loadKeywords()

func loadKeywords() keywordSet {
	var ks keywordSet
	if err := yaml.Unmarshal(keywordsYAML, &ks); err != nil {
		panic("workflow: bad embedded keywords.yaml: " + err.Error())
	}
	return ks
}

// containsAny reports whether text contains any keyword, along with the
// first one matched in list order. Matching is case-insensitive.
func containsAny(text string, kws []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range kws {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}
