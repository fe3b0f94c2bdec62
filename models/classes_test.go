package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelSets(t *testing.T) {
	tests := []struct {
		family string
		idx    int
		name   string
		size   int
	}{
		{family: "coco", idx: 1, name: "person", size: 81},
		{family: "YOLO", idx: 0, name: "person", size: 80},
		{family: "voc", idx: 20, name: "tvmonitor", size: 21},
	}

	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			set, err := LookupLabelSet(tt.family)
			require.NoError(t, err)
			require.NotNil(t, set)
			assert.Len(t, set.Labels, tt.size)
			assert.Equal(t, tt.name, set.Name(tt.idx))

			idx, err := set.Index(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.idx, idx)
		})
	}
}

func TestLabelSetFallbacks(t *testing.T) {
	assert.Equal(t, "class 500", COCOLabels.Name(500))
	assert.Equal(t, "class -1", YOLOLabels.Name(-1))

	var none *LabelSet
	assert.Equal(t, "class 3", none.Name(3))

	_, err := COCOLabels.Index("unicorn")
	assert.Error(t, err)

	set, err := LookupLabelSet("")
	assert.NoError(t, err)
	assert.Nil(t, set)

	_, err = LookupLabelSet("imagenet")
	assert.Error(t, err)
}
