package funnel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadlens/internal/funnel"
	"leadlens/internal/testsupport"
)

func TestLoadBoard(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	seed := []funnel.Lead{
		{Name: "Ada", Email: "ada@example.com", Status: "new"},
		{Name: "Grace", Email: "grace@example.com", Status: "converted"},
		{Name: "Edsger", Email: "edsger@example.com", Status: "pending"},
		{Name: "Barbara", Email: "barbara@example.com", Status: "cancelled"},
	}
	for i := range seed {
		require.NoError(t, funnel.CreateLead(logger, db, &seed[i]))
	}

	board, err := funnel.LoadBoard(db)
	require.NoError(t, err)
	require.Len(t, board.Stages, len(funnel.StageOrder))

	byName := make(map[string]funnel.BoardStage)
	for _, stage := range board.Stages {
		byName[stage.Name] = stage
	}

	// pending folds into new, cancelled into lost, converted into customer.
	assert.Len(t, byName["new"].Items, 2)
	assert.Len(t, byName["customer"].Items, 1)
	assert.Len(t, byName["lost"].Items, 1)
	// Empty stages are present with empty item lists.
	assert.NotNil(t, byName["proposal"].Items)
	assert.Empty(t, byName["proposal"].Items)

	// Items carry the board vocabulary, not the storage one.
	assert.Equal(t, "customer", byName["customer"].Items[0].Status)
}

func TestMoveLead(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	lead := funnel.Lead{Name: "Alan", Email: "alan@example.com"}
	require.NoError(t, funnel.CreateLead(logger, db, &lead))
	assert.Equal(t, "new", lead.Status)

	moved, err := funnel.MoveLead(logger, db, lead.ID, "customer")
	require.NoError(t, err)
	// The stage translates back to persistence vocabulary at the boundary.
	assert.Equal(t, "converted", moved.Status)

	var stored funnel.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, "converted", stored.Status)

	_, err = funnel.MoveLead(logger, db, 99999, "customer")
	assert.Error(t, err)
}
