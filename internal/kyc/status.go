package kyc

import "assetbridge-nexus/internal/models"

// Provider-side inquiry states
const (
	InquiryCompleted = "completed"
	InquiryPending   = "pending"
	InquiryFailed    = "failed"
)

var statusDetails = map[string]string{
	models.KycPending:  "Verification in progress",
	models.KycVerified: "Identity verified",
	models.KycRejected: "Verification failed",
}

// StatusDetails returns the human readable description of a KYC status
func StatusDetails(status string) string {
	if details, ok := statusDetails[status]; ok {
		return details
	}
	return "Status unknown"
}

// CanTransition reports whether a user may move from one KYC status to
// another. Verified is terminal unless an administrator resets it.
func CanTransition(from, to string, admin bool) bool {
	if from == to {
		return true
	}
	switch from {
	case models.KycPending:
		return to == models.KycVerified || to == models.KycRejected
	case models.KycRejected:
		return to == models.KycPending
	case models.KycVerified:
		return admin && to == models.KycPending
	}
	return false
}

// ResolveWebhookStatus maps a provider inquiry status onto a KYC status
func ResolveWebhookStatus(inquiryStatus string, passed bool) string {
	switch inquiryStatus {
	case InquiryCompleted:
		if passed {
			return models.KycVerified
		}
		return models.KycRejected
	case InquiryFailed:
		return models.KycRejected
	default:
		return models.KycPending
	}
}
