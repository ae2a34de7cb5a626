package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%king%", ContainsPattern("king"))
	assert.Equal(t, `%100\% \_x\\y%`, ContainsPattern(`100% _x\y`))
}
