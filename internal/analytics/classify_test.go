package analytics

import "testing"

func TestClassify(t *testing.T) {
	c := NewClassifier(
		[]string{"Chaos Orb", "Divine Orb"},
		[]string{"Empower Support"},
		[]string{"Currency", "Guild Currency"},
	)

	tests := []struct {
		name  string
		item  string
		stash string
		want  Category
	}{
		{"currency item in currency tab", "Chaos Orb", "Currency", CategoryCurrency},
		{"currency item in guild tab", "Divine Orb", "Guild Currency", CategoryCurrency},
		{"currency item in dump tab", "Chaos Orb", "Dump", CategoryOther},
		{"gem anywhere", "Empower Support", "Dump", CategoryGem},
		{"gem in currency tab stays gem", "Empower Support", "Currency", CategoryGem},
		{"unknown item", "Tabula Rasa", "Currency", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.item, tt.stash); got != tt.want {
				t.Errorf("Classify(%q, %q) = %v, want %v", tt.item, tt.stash, got, tt.want)
			}
		})
	}
}
