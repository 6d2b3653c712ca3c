package tags

import (
	"reflect"
	"testing"

	"github.com/lookanalyst/lookanalyst/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []models.ClothingTagSet
	}{
		{
			name: "numbered lists with noise",
			raw:  "1: [blazer, gris, tweed]\n2: [pantalón, negro]\nnoise line\n",
			expected: []models.ClothingTagSet{
				{"blazer", "gris", "tweed"},
				{"pantalón", "negro"},
			},
		},
		{
			name:     "no matching lines",
			raw:      "No se encontraron prendas de ropa en la imagen.",
			expected: []models.ClothingTagSet{},
		},
		{
			name:     "empty input",
			raw:      "",
			expected: []models.ClothingTagSet{},
		},
		{
			name: "windows line endings and indentation",
			raw:  "  1: [jacket, black, leather]\r\n  2: [jeans, blue]\r\n",
			expected: []models.ClothingTagSet{
				{"jacket", "black", "leather"},
				{"jeans", "blue"},
			},
		},
		{
			name: "multi-word tags and extra spaces",
			raw:  "1:[  camisa ,  manga larga,algodón  ]",
			expected: []models.ClothingTagSet{
				{"camisa", "manga larga", "algodón"},
			},
		},
		{
			name: "empty items are kept, one set per line",
			raw:  "1: [remera, , blanca,]\n2: [ , ]",
			expected: []models.ClothingTagSet{
				{"remera", "", "blanca", ""},
				{"", ""},
			},
		},
		{
			name: "partial and malformed lines are skipped",
			raw:  "Here are the garments:\n1: [coat, beige\n2 [skirt, red]\n- 3: [hat]\n4: [boots, brown]",
			expected: []models.ClothingTagSet{
				{"boots", "brown"},
			},
		},
		{
			name: "order follows the model output, not the numbering",
			raw:  "2: [scarf]\n1: [gloves]",
			expected: []models.ClothingTagSet{
				{"scarf"},
				{"gloves"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if got == nil {
				t.Fatal("Parse returned nil, want non-nil slice")
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestCount(t *testing.T) {
	sets := Parse("1: [a, b, c]\n2: [d]")
	if got := Count(sets); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
	if got := Count(nil); got != 0 {
		t.Errorf("Count(nil) = %d, want 0", got)
	}
}
