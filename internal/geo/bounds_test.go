package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dispatch/pkg/domain"
)

func TestBoundingBoxAround_ContainsCenter(t *testing.T) {
	center := mustLoc(t, -33.45, -70.65)
	box := BoundingBoxAround(center, 5000)
	assert.True(t, box.Contains(center))
}

func TestBoundingBoxAround_ExcludesFarPoint(t *testing.T) {
	center := mustLoc(t, -33.45, -70.65)
	box := BoundingBoxAround(center, 1000)
	far, _ := domain.NewLocation(-30.0, -70.65)
	assert.False(t, box.Contains(far))
}

func TestBoundingBoxAround_ClampsAtPoles(t *testing.T) {
	center := mustLoc(t, 89.9, 0)
	box := BoundingBoxAround(center, 50000)
	assert.LessOrEqual(t, box.MaxLat, 90.0)
}

func TestNormalizeLongitude(t *testing.T) {
	assert.InDelta(t, 170, NormalizeLongitude(170), 0.0001)
	assert.InDelta(t, -170, NormalizeLongitude(190), 0.0001)
	assert.InDelta(t, 170, NormalizeLongitude(-190), 0.0001)
}

func TestNormalizeLatitude(t *testing.T) {
	assert.Equal(t, 90.0, NormalizeLatitude(95))
	assert.Equal(t, -90.0, NormalizeLatitude(-95))
	assert.Equal(t, 45.0, NormalizeLatitude(45))
}
