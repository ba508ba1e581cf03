package categories

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClassify(t *testing.T) {
	c := Default()
	tests := []struct {
		category string
		want     Class
	}{
		{"Revenue", ClassRevenue},
		{"revenue", ClassRevenue},
		{"COGS", ClassCOGS},
		{"Cost of Goods Sold", ClassCOGS},
		{"Opex:Marketing", ClassOpex},
		{"opex:r&d", ClassOpex},
		{"Opex", ClassOpex},
		{"Interest", ClassOther},
		{"", ClassOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.category), "Classify(%q)", tt.category)
	}
}

func TestFirstRuleWins(t *testing.T) {
	c := NewClassifier([]Rule{
		{Pattern: "Opex:Hosting", Class: ClassCOGS},
		{Pattern: "Opex:*", Class: ClassOpex},
	})
	assert.Equal(t, ClassCOGS, c.Classify("Opex:Hosting"))
	assert.Equal(t, ClassOpex, c.Classify("Opex:Admin"))
	assert.True(t, c.Is("Opex:Admin", ClassOpex))
}

func TestParseClass(t *testing.T) {
	got, err := ParseClass(" OPEX ")
	require.NoError(t, err)
	assert.Equal(t, ClassOpex, got)

	_, err = ParseClass("assets")
	assert.Error(t, err)
}

func TestRulesRoundTrip(t *testing.T) {
	rules := DefaultRules()

	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, rules))

	got, err := ReadRules(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(rules))
	for i := range rules {
		assert.Equal(t, rules[i], got[i])
	}
}

func TestUnmarshalRule_BadClass(t *testing.T) {
	_, err := UnmarshalRule([]string{"Revenue", "income"})
	assert.Error(t, err)

	_, err = UnmarshalRule([]string{"", "revenue"})
	assert.Error(t, err)

	_, err = UnmarshalRule([]string{"Revenue"})
	assert.Contains(t, err.Error(), "expected 2 fields")
}

func TestLoadTestdata(t *testing.T) {
	c, err := Load("../../testdata/category-rules.csv")
	require.NoError(t, err)
	assert.Len(t, c.Rules(), 6)
	assert.Equal(t, ClassCOGS, c.Classify("Hosting"))
	assert.Equal(t, ClassOther, c.Classify("Depreciation"))
	assert.Equal(t, ClassRevenue, c.Classify("Subscription Revenue"))
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, len(DefaultRules()), len(c.Rules()))
}
