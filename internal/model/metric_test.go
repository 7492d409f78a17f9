package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricResult_Validate(t *testing.T) {
	ok := SingleSeries([]string{"a", "b"}, []int64{1, 2}, KindGeneric)
	require.NoError(t, ok.Validate())

	assert.ErrorIs(t, MetricResult{Series: [][]int64{{1}}}.Validate(), ErrEmptyLabels)
	assert.ErrorIs(t, MetricResult{Labels: []string{"a"}}.Validate(), ErrEmptySeries)

	bad := MetricResult{Labels: []string{"a", "b"}, Series: [][]int64{{1, 2}, {3}}}
	assert.ErrorIs(t, bad.Validate(), ErrSeriesMisaligned)
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder(PlaceholderNoData, KindGeneric)
	require.NoError(t, p.Validate())
	assert.Equal(t, []string{"no data"}, p.Labels)
	assert.Equal(t, [][]int64{{0}}, p.Series)
}

func TestMetricResult_CloneIsDeep(t *testing.T) {
	orig := SingleSeries([]string{"a"}, []int64{1}, KindUser)
	orig.All = []Detail{{Label: "a", Value: 1, Meta: map[string]string{"k": "v"}}}

	cp := orig.Clone()
	cp.Labels[0] = "changed"
	cp.Series[0][0] = 99
	cp.All[0].Meta["k"] = "other"

	assert.Equal(t, "a", orig.Labels[0])
	assert.Equal(t, int64(1), orig.Series[0][0])
	assert.Equal(t, "v", orig.All[0].Meta["k"])
}

func TestOrder_IsDelivered(t *testing.T) {
	assert.True(t, Order{Status: StatusApproved, Delivered: true}.IsDelivered())
	assert.True(t, Order{Status: StatusDelivered}.IsDelivered())
	assert.False(t, Order{Status: StatusApproved}.IsDelivered())
}

func TestUserDeliveryCount_Label(t *testing.T) {
	assert.Equal(t, "Awa Diallo (M123)", UserDeliveryCount{Name: "Awa Diallo", Matricule: "M123"}.Label())
	assert.Equal(t, "Awa Diallo", UserDeliveryCount{Name: "Awa Diallo"}.Label())
}

func TestCommand_Validate(t *testing.T) {
	c := Command{Command: CommandInvalidateAll, RequestedBy: "ops"}
	require.NoError(t, c.Validate())

	c.Command = "drop_tables"
	require.Error(t, c.Validate())

	c = Command{Command: CommandRefresh}
	require.Error(t, c.Validate())
}
