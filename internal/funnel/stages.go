// Package funnel translates between lead persistence statuses and the
// stage vocabulary shown on the funnel board. The two vocabularies are
// deliberately kept as two one-way lookup tables: legacy statuses
// (pending, confirmed, completed, cancelled) fold into board stages
// with no inverse, so a single bijective enum cannot express the
// mapping.
package funnel

// Board stage names.
const (
	StageNew         = "new"
	StageContacted   = "contacted"
	StageQualified   = "qualified"
	StageOpportunity = "opportunity"
	StageProposal    = "proposal"
	StageCustomer    = "customer"
	StageLost        = "lost"
)

// Persistence status names, including the legacy booking vocabulary.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusConverted = "converted"
	StatusLost      = "lost"
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var toStage = map[string]string{
	StatusNew:        StageNew,
	StatusContacted:  StageContacted,
	StatusQualified:  StageQualified,
	StatusConverted:  StageCustomer,
	StatusLost:       StageLost,
	StatusPending:    StageNew,
	StatusConfirmed:  StageContacted,
	StatusCompleted:  StageQualified,
	StatusCancelled:  StageLost,
	StageOpportunity: StageOpportunity,
	StageProposal:    StageProposal,
	StageCustomer:    StageCustomer,
}

var toStatus = map[string]string{
	StageNew:         StatusNew,
	StageContacted:   StatusContacted,
	StageQualified:   StatusQualified,
	StageOpportunity: StageOpportunity,
	StageProposal:    StageProposal,
	StageCustomer:    StatusConverted,
	StageLost:        StatusLost,
}

// StageOrder is the left-to-right board layout.
var StageOrder = []string{
	StageNew, StageContacted, StageQualified,
	StageOpportunity, StageProposal, StageCustomer, StageLost,
}

// ToFunnelStatus maps a persistence status to its board stage. Unknown
// statuses land in StageNew: lead data from legacy or third-party
// sources may carry vocabularies we have never seen, and the board must
// still place them somewhere.
func ToFunnelStatus(dbStatus string) string {
	if stage, ok := toStage[dbStatus]; ok {
		return stage
	}
	return StageNew
}

// ToDBStatus maps a board stage back to a persistence status. Unknown
// input defaults to StatusNew. Round-trips are identity only for the
// seven board stages; legacy aliases are lossy by design.
func ToDBStatus(funnelStatus string) string {
	if status, ok := toStatus[funnelStatus]; ok {
		return status
	}
	return StatusNew
}
