// Package registry is the single source of truth for the closed
// vocabularies named in spec.md §6: stages, identity statuses, intent
// labels, product lines, urgency, SLAs, risk flags, queues, and
// actions. Every stage output that carries one of these strings is
// validated against this registry before persistence; a non-canonical
// label is a schema-validation failure that fails the stage closed.
package registry

import "fmt"

// Stage identifies a pipeline stage in the canonical enum (§6).
type Stage string

const (
	StageIngest      Stage = "INGEST"
	StageNormalize   Stage = "NORMALIZE"
	StageAttachments Stage = "ATTACHMENTS"
	StageIdentity    Stage = "IDENTITY"
	StageClassify    Stage = "CLASSIFY"
	StageExtract     Stage = "EXTRACT"
	StageRoute       Stage = "ROUTE"
	StageCase        Stage = "CASE"
	StageHITL        Stage = "HITL"
	StageReprocess   Stage = "REPROCESS"
)

// IdentityStatus is the derived confidence tier of the Identity Resolver (§4.5).
type IdentityStatus string

const (
	IdentityConfirmed    IdentityStatus = "CONFIRMED"
	IdentityProbable     IdentityStatus = "PROBABLE"
	IdentityNeedsReview  IdentityStatus = "NEEDS_REVIEW"
	IdentityNoCandidate  IdentityStatus = "NO_CANDIDATE"
)

// EntityType is a candidate identity entity kind (§3).
type EntityType string

const (
	EntityCustomer EntityType = "CUSTOMER"
	EntityPolicy   EntityType = "POLICY"
	EntityClaim    EntityType = "CLAIM"
	EntityContact  EntityType = "CONTACT"
	EntityBroker   EntityType = "BROKER"
)

// Intent is one of the 13 canonical intent labels (§4.6).
type Intent string

const (
	IntentGDPRRequest        Intent = "INTENT_GDPR_REQUEST"
	IntentLegal              Intent = "INTENT_LEGAL"
	IntentComplaint          Intent = "INTENT_COMPLAINT"
	IntentClaimNew           Intent = "INTENT_CLAIM_NEW"
	IntentClaimUpdate        Intent = "INTENT_CLAIM_UPDATE"
	IntentPolicyCancellation Intent = "INTENT_POLICY_CANCELLATION"
	IntentPolicyChange       Intent = "INTENT_POLICY_CHANGE"
	IntentBillingQuestion    Intent = "INTENT_BILLING_QUESTION"
	IntentDocumentSubmission Intent = "INTENT_DOCUMENT_SUBMISSION"
	IntentCoverageQuestion   Intent = "INTENT_COVERAGE_QUESTION"
	IntentBrokerIntermediary Intent = "INTENT_BROKER_INTERMEDIARY"
	IntentTechnical          Intent = "INTENT_TECHNICAL"
	IntentGeneralInquiry     Intent = "INTENT_GENERAL_INQUIRY"
)

// PrimaryIntentPriority is the canonical order used to select the
// single primary intent out of an accepted multi-label set (§4.6).
// Index position IS the priority; lower index wins.
var PrimaryIntentPriority = []Intent{
	IntentGDPRRequest,
	IntentLegal,
	IntentComplaint,
	IntentClaimNew,
	IntentClaimUpdate,
	IntentPolicyCancellation,
	IntentPolicyChange,
	IntentBillingQuestion,
	IntentDocumentSubmission,
	IntentCoverageQuestion,
	IntentBrokerIntermediary,
	IntentTechnical,
	IntentGeneralInquiry,
}

// ProductLine is one of the 11 canonical product lines.
type ProductLine string

const (
	ProductAuto          ProductLine = "PROD_AUTO"
	ProductHome          ProductLine = "PROD_HOME"
	ProductHealth        ProductLine = "PROD_HEALTH"
	ProductLife          ProductLine = "PROD_LIFE"
	ProductTravel        ProductLine = "PROD_TRAVEL"
	ProductLiability     ProductLine = "PROD_LIABILITY"
	ProductCommercial    ProductLine = "PROD_COMMERCIAL"
	ProductLegalProtect  ProductLine = "PROD_LEGAL_PROTECTION"
	ProductPet           ProductLine = "PROD_PET"
	ProductDisability    ProductLine = "PROD_DISABILITY"
	ProductUnknown       ProductLine = "PROD_UNKNOWN"
)

// Urgency is one of the 4 canonical urgency tiers.
type Urgency string

const (
	UrgencyLow      Urgency = "URG_LOW"
	UrgencyMedium   Urgency = "URG_MEDIUM"
	UrgencyHigh     Urgency = "URG_HIGH"
	UrgencyCritical Urgency = "URG_CRITICAL"
)

// SLA is one of the canonical SLA identifiers.
type SLA string

const (
	SLA1Hour   SLA = "SLA_1H"
	SLA4Hour   SLA = "SLA_4H"
	SLA1BizDay SLA = "SLA_1BD"
	SLA3BizDay SLA = "SLA_3BD"
)

// RiskFlag is one of the 10 canonical risk flags (§4.6, §4.8).
type RiskFlag string

const (
	RiskSecurityMalware    RiskFlag = "RISK_SECURITY_MALWARE"
	RiskLegalThreat        RiskFlag = "RISK_LEGAL_THREAT"
	RiskRegulatory         RiskFlag = "RISK_REGULATORY"
	RiskFraudSignal        RiskFlag = "RISK_FRAUD_SIGNAL"
	RiskSelfHarmThreat     RiskFlag = "RISK_SELF_HARM_THREAT"
	RiskAutoreplyLoop      RiskFlag = "RISK_AUTOREPLY_LOOP"
	RiskLanguageUnsupported RiskFlag = "RISK_LANGUAGE_UNSUPPORTED"
	RiskSanctionsHit       RiskFlag = "RISK_SANCTIONS_HIT"
	RiskVIPEscalation      RiskFlag = "RISK_VIP_ESCALATION"
	RiskDuplicateSubmission RiskFlag = "RISK_DUPLICATE_SUBMISSION"
)

// CanonicalRiskOverrideOrder is the fixed order hard risk overrides are
// evaluated in by the Routing Evaluator (§4.8 step 2). This is the one
// authoritative copy; any other table enumerating the same order must
// be generated from this slice, never hand-duplicated (Open Question, §9).
var CanonicalRiskOverrideOrder = []RiskFlag{
	RiskSecurityMalware,
	RiskRegulatory,
	RiskLegalThreat,
	RiskFraudSignal,
	RiskSelfHarmThreat,
	RiskLanguageUnsupported,
}

// Queue is one of the 18 canonical destination queues.
type Queue string

const (
	QueueClaimsAuto            Queue = "QUEUE_CLAIMS_AUTO"
	QueueClaimsHome            Queue = "QUEUE_CLAIMS_HOME"
	QueueClaimsHealth          Queue = "QUEUE_CLAIMS_HEALTH"
	QueueClaimsLife            Queue = "QUEUE_CLAIMS_LIFE"
	QueueClaimsGeneral         Queue = "QUEUE_CLAIMS_GENERAL"
	QueuePolicyService         Queue = "QUEUE_POLICY_SERVICE"
	QueueBilling               Queue = "QUEUE_BILLING"
	QueueComplaints            Queue = "QUEUE_COMPLAINTS"
	QueueLegal                 Queue = "QUEUE_LEGAL"
	QueueFraud                 Queue = "QUEUE_FRAUD"
	QueuePrivacyDSR            Queue = "QUEUE_PRIVACY_DSR"
	QueueSecurityReview        Queue = "QUEUE_SECURITY_REVIEW"
	QueueIdentityReview        Queue = "QUEUE_IDENTITY_REVIEW"
	QueueClassificationReview  Queue = "QUEUE_CLASSIFICATION_REVIEW"
	QueueUnknownProductReview  Queue = "QUEUE_UNKNOWN_PRODUCT_REVIEW"
	QueueIntakeReviewGeneral   Queue = "QUEUE_INTAKE_REVIEW_GENERAL"
	QueueBrokerIntermediary    Queue = "QUEUE_BROKER_INTERMEDIARY"
	QueueTechnicalSupport      Queue = "QUEUE_TECHNICAL_SUPPORT"
)

// Action is one of the 6 canonical routing actions.
type Action string

const (
	ActionCreateCase         Action = "CREATE_CASE"
	ActionAttachOriginalMail Action = "ATTACH_ORIGINAL_EMAIL"
	ActionAttachAllFiles     Action = "ATTACH_ALL_FILES"
	ActionAddRequestInfoDraft Action = "ADD_REQUEST_INFO_DRAFT"
	ActionBlockCaseCreate    Action = "BLOCK_CASE_CREATE"
	ActionHumanEscalation    Action = "HUMAN_ESCALATION"
)

// ClassificationPurpose is a canonical LLM-inference purpose used to key
// the Inference Cache (§4.4).
type ClassificationPurpose string

const (
	PurposeClassify      ClassificationPurpose = "CLASSIFY"
	PurposeExtract       ClassificationPurpose = "EXTRACT"
	PurposeIdentityAssist ClassificationPurpose = "IDENTITY_ASSIST"
)

var (
	stageSet      = setOf(StageIngest, StageNormalize, StageAttachments, StageIdentity, StageClassify, StageExtract, StageRoute, StageCase, StageHITL, StageReprocess)
	identitySet   = setOf(IdentityConfirmed, IdentityProbable, IdentityNeedsReview, IdentityNoCandidate)
	entitySet     = setOf(EntityCustomer, EntityPolicy, EntityClaim, EntityContact, EntityBroker)
	intentSet     = setOf(IntentGDPRRequest, IntentLegal, IntentComplaint, IntentClaimNew, IntentClaimUpdate, IntentPolicyCancellation, IntentPolicyChange, IntentBillingQuestion, IntentDocumentSubmission, IntentCoverageQuestion, IntentBrokerIntermediary, IntentTechnical, IntentGeneralInquiry)
	productSet    = setOf(ProductAuto, ProductHome, ProductHealth, ProductLife, ProductTravel, ProductLiability, ProductCommercial, ProductLegalProtect, ProductPet, ProductDisability, ProductUnknown)
	urgencySet    = setOf(UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical)
	slaSet        = setOf(SLA1Hour, SLA4Hour, SLA1BizDay, SLA3BizDay)
	riskFlagSet   = setOf(RiskSecurityMalware, RiskLegalThreat, RiskRegulatory, RiskFraudSignal, RiskSelfHarmThreat, RiskAutoreplyLoop, RiskLanguageUnsupported, RiskSanctionsHit, RiskVIPEscalation, RiskDuplicateSubmission)
	queueSet      = setOf(QueueClaimsAuto, QueueClaimsHome, QueueClaimsHealth, QueueClaimsLife, QueueClaimsGeneral, QueuePolicyService, QueueBilling, QueueComplaints, QueueLegal, QueueFraud, QueuePrivacyDSR, QueueSecurityReview, QueueIdentityReview, QueueClassificationReview, QueueUnknownProductReview, QueueIntakeReviewGeneral, QueueBrokerIntermediary, QueueTechnicalSupport)
	actionSet     = setOf(ActionCreateCase, ActionAttachOriginalMail, ActionAttachAllFiles, ActionAddRequestInfoDraft, ActionBlockCaseCreate, ActionHumanEscalation)
)

func setOf[T comparable](vals ...T) map[T]struct{} {
	m := make(map[T]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

// ErrNonCanonical is returned when a value is not a member of its
// registered vocabulary.
type ErrNonCanonical struct {
	Vocabulary string
	Value      string
}

func (e *ErrNonCanonical) Error() string {
	return fmt.Sprintf("registry: %q is not a canonical %s value", e.Value, e.Vocabulary)
}

// ValidateStage validates a Stage against the canonical registry.
func ValidateStage(s Stage) error { return validate("stage", string(s), stageSet) }

// ValidateIdentityStatus validates an IdentityStatus.
func ValidateIdentityStatus(s IdentityStatus) error {
	return validate("identity_status", string(s), identitySet)
}

// ValidateEntityType validates an EntityType.
func ValidateEntityType(e EntityType) error { return validate("entity_type", string(e), entitySet) }

// ValidateIntent validates an Intent.
func ValidateIntent(i Intent) error { return validate("intent", string(i), intentSet) }

// ValidateProductLine validates a ProductLine.
func ValidateProductLine(p ProductLine) error { return validate("product_line", string(p), productSet) }

// ValidateUrgency validates an Urgency.
func ValidateUrgency(u Urgency) error { return validate("urgency", string(u), urgencySet) }

// ValidateSLA validates an SLA.
func ValidateSLA(s SLA) error { return validate("sla", string(s), slaSet) }

// ValidateRiskFlag validates a RiskFlag.
func ValidateRiskFlag(r RiskFlag) error { return validate("risk_flag", string(r), riskFlagSet) }

// ValidateQueue validates a Queue.
func ValidateQueue(q Queue) error { return validate("queue", string(q), queueSet) }

// ValidateAction validates an Action.
func ValidateAction(a Action) error { return validate("action", string(a), actionSet) }

func validate[T ~string](vocab string, v string, set map[T]struct{}) error {
	if _, ok := set[T(v)]; !ok {
		return &ErrNonCanonical{Vocabulary: vocab, Value: v}
	}
	return nil
}

// PrimaryIntentRank returns the priority rank of an intent (lower is
// higher priority) per PrimaryIntentPriority, or -1 if the intent is
// not in the canonical priority table.
func PrimaryIntentRank(i Intent) int {
	for idx, candidate := range PrimaryIntentPriority {
		if candidate == i {
			return idx
		}
	}
	return -1
}
