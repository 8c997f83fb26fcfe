package messages

import (
	"testing"

	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneToOneConversationID(t *testing.T) {
	id, err := OneToOneConversationID("1445033218468306944", "783214")
	require.NoError(t, err)
	assert.Equal(t, "783214-1445033218468306944", id)

	same, err := OneToOneConversationID("783214", "1445033218468306944")
	require.NoError(t, err)
	assert.Equal(t, id, same)

	_, err = OneToOneConversationID("jack", "12")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = OneToOneConversationID("12", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
