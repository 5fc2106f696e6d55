package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Waste categories a report can claim. Base fill volumes live in the
// fillmodel package and can be overridden through system settings.
type WasteCategory string

const (
	CategoryPaper      WasteCategory = "PAPER"
	CategoryPlastic    WasteCategory = "PLASTIC"
	CategoryGlass      WasteCategory = "GLASS"
	CategoryOrganic    WasteCategory = "ORGANIC"
	CategoryElectronic WasteCategory = "ELECTRONIC"
	CategoryGeneral    WasteCategory = "GENERAL"
	CategorySmall      WasteCategory = "SMALL"
)

func (c WasteCategory) Valid() bool {
	switch c {
	case CategoryPaper, CategoryPlastic, CategoryGlass, CategoryOrganic,
		CategoryElectronic, CategoryGeneral, CategorySmall:
		return true
	}
	return false
}

// Report lifecycle. Transitions are forward-only:
// PENDING -> UNDER_VETTING -> {APPROVED, REJECTED}, or straight from
// PENDING to a terminal state when the scorer routes past vetting.
type ReportStatus string

const (
	StatusPending      ReportStatus = "PENDING"
	StatusUnderVetting ReportStatus = "UNDER_VETTING"
	StatusApproved     ReportStatus = "APPROVED"
	StatusRejected     ReportStatus = "REJECTED"
)

func (s ReportStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// How a terminal status was reached.
type Resolution string

const (
	ResolutionAuto      Resolution = "AUTO"      // scorer routed past vetting
	ResolutionConsensus Resolution = "CONSENSUS" // quorum of weighted votes
	ResolutionTimeout   Resolution = "TIMEOUT"   // vetting window expired without quorum
)

type VoteChoice string

const (
	VoteApprove VoteChoice = "APPROVE"
	VoteReject  VoteChoice = "REJECT"
)

type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleStaff   UserRole = "STAFF"
	RoleAdmin   UserRole = "ADMIN"
)

type BinStatus string

const (
	BinActive      BinStatus = "ACTIVE"
	BinMaintenance BinStatus = "MAINTENANCE"
	BinRemoved     BinStatus = "REMOVED"
)

// Trigger tags for bin fill-level snapshots.
type FillTrigger string

const (
	TriggerReport  FillTrigger = "REPORT"
	TriggerEmptied FillTrigger = "EMPTIED"
	TriggerDecay   FillTrigger = "DECAY_CORRECTION"
	TriggerManual  FillTrigger = "MANUAL"
)

// Reason codes written to the counter adjustment ledger.
type AdjustReason string

const (
	ReasonReportApproved     AdjustReason = "REPORT_APPROVED"
	ReasonReportRejected     AdjustReason = "REPORT_REJECTED"
	ReasonVettingCorrect     AdjustReason = "VETTING_CORRECT"
	ReasonVettingWrong       AdjustReason = "VETTING_WRONG"
	ReasonBountyClaimed      AdjustReason = "BOUNTY_CLAIMED"
	ReasonBountySlotTaken    AdjustReason = "BOUNTY_SLOT_TAKEN"
	ReasonDetectiveConfirmed AdjustReason = "DETECTIVE_CONFIRMED"
	ReasonDetectiveVote      AdjustReason = "DETECTIVE_VOTE"
	ReasonStreakBonus        AdjustReason = "STREAK_BONUS"
	ReasonPenalty            AdjustReason = "PENALTY"
	ReasonManualAdjustment   AdjustReason = "MANUAL_ADJUSTMENT"
	ReasonBinReport          AdjustReason = "BIN_REPORT"
	ReasonBinEmptied         AdjustReason = "BIN_EMPTIED"
	ReasonBinDecay           AdjustReason = "BIN_DECAY_CORRECTION"
)

// Ref points an audit entry at the record that caused it.
type Ref struct {
	Type string
	ID   string
}

type User struct {
	ID          string
	Email       string
	Role        UserRole
	TrustScore  int
	TotalPoints int
	LastLat     *float64
	LastLon     *float64
	CreatedAt   time.Time
}

type Bin struct {
	ID            string
	Code          string
	Latitude      float64
	Longitude     float64
	BinType       string
	Indoor        bool
	FillLevel     decimal.Decimal
	Status        BinStatus
	LastEmptiedAt *time.Time
	LastReportAt  *time.Time
}

type WasteReport struct {
	ID              string
	UserID          string // empty when the submitter was deleted
	BinID           string
	Category        WasteCategory
	Latitude        float64
	Longitude       float64
	ClientTimestamp time.Time
	CreatedAt       time.Time
	GeoDistanceM    int
	FillDelta       decimal.Decimal
	SuspicionScore  int
	Status          ReportStatus
	Resolution      Resolution // empty until terminal
	PointsAwarded   int
}

type PhotoEvidence struct {
	ReportID     string
	ImageHash    string
	AIMatch      *bool
	AIConfidence *float64
	AIReason     string
	AnalyzedAt   *time.Time
}

type VettingVote struct {
	ID               int64
	ReportID         string
	VoterID          string
	Choice           VoteChoice
	VoterTrustAtVote int // snapshot, never recomputed
	VoterDistanceM   int
	CreatedAt        time.Time
}

type CounterAdjustment struct {
	ID          int64
	SubjectType string
	SubjectID   string
	Delta       decimal.Decimal
	ValueAfter  decimal.Decimal
	Reason      AdjustReason
	RelatedType string
	RelatedID   string
	CreatedAt   time.Time
}

type FillLogEntry struct {
	BinID       string
	FillLevel   decimal.Decimal
	Trigger     FillTrigger
	TriggeredBy string
	CreatedAt   time.Time
}

type BountyStatus string

const (
	BountyOpen    BountyStatus = "OPEN"
	BountyClosed  BountyStatus = "CLOSED"
	BountyExpired BountyStatus = "EXPIRED"
)

type Bounty struct {
	ID               string
	Title            string
	TargetBinID      string
	RewardPoints     int
	MaxClaimants     int
	CurrentClaimants int
	Status           BountyStatus
	ExpiresAt        time.Time
}

type DetectiveStatus string

const (
	DetectivePending   DetectiveStatus = "PENDING"
	DetectiveConfirmed DetectiveStatus = "CONFIRMED"
	DetectiveResolved  DetectiveStatus = "RESOLVED"
	DetectiveRejected  DetectiveStatus = "REJECTED"
)

type DetectiveReport struct {
	ID                string
	ReporterID        string
	ProblemType       string
	Latitude          float64
	Longitude         float64
	ConfirmationCount int
	Status            DetectiveStatus
	CreatedAt         time.Time
}
