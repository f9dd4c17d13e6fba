// Package tamperproof seals completed inspections into a per-extinguisher
// hash chain and verifies it.
//
// The hash covers a canonical text payload of the inspection. The signature
// is an HMAC over tenant id and hash using a server side key, so a party with
// database access alone cannot re-seal an edited record.
package tamperproof

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fireproof/internal/models"
)

// PayloadVersion is the first line of every canonical payload.
const PayloadVersion = "1"

var ErrMissingKey = errors.New("tamperproof: signing key is empty")

var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, "=", `\=`)

func escape(s string) string {
	return escaper.Replace(s)
}

func optUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optCoord(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 6, 64)
}

// FormatTime renders t the way it appears in the payload. Postgres keeps
// microseconds, so finer precision is dropped.
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}

// CanonicalPayload builds the text that is hashed for insp.
func CanonicalPayload(insp *models.Inspection, previousHash string) string {
	var b strings.Builder
	line := func(key, value string) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(escape(value))
		b.WriteByte('\n')
	}

	line("v", PayloadVersion)
	line("inspection_id", insp.ID.String())
	line("tenant_id", insp.TenantID.String())
	line("extinguisher_id", insp.ExtinguisherID.String())
	line("inspector_id", optUUID(insp.InspectorID))
	line("template_id", insp.TemplateID.String())
	line("inspection_type", insp.InspectionType)
	line("completed_at", FormatTime(insp.CompletedAt))
	line("overall_result", optString(insp.OverallResult))
	line("latitude", optCoord(insp.Latitude))
	line("longitude", optCoord(insp.Longitude))
	line("notes", optString(insp.Notes))

	responses := make([]models.InspectionResponse, len(insp.Responses))
	copy(responses, insp.Responses)
	sort.Slice(responses, func(i, j int) bool {
		return responses[i].ItemID.String() < responses[j].ItemID.String()
	})
	for _, r := range responses {
		line("response", r.ItemID.String()+":"+r.Result+":"+r.Comment)
	}

	b.WriteString("previous_hash=")
	b.WriteString(escape(previousHash))
	return b.String()
}

// Hash returns the lowercase hex SHA-256 of payload.
func Hash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Sealer signs and verifies inspection hashes with one HMAC key.
type Sealer struct {
	key []byte
}

func NewSealer(key string) (*Sealer, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	return &Sealer{key: []byte(key)}, nil
}

// Sign returns base64(HMAC-SHA256(key, tenant_id ":" hash)).
func (s *Sealer) Sign(tenantID uuid.UUID, hash string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(tenantID.String() + ":" + hash))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Seal computes hash and signature for insp chained to previousHash.
func (s *Sealer) Seal(insp *models.Inspection, previousHash string) (hash, signature string) {
	hash = Hash(CanonicalPayload(insp, previousHash))
	return hash, s.Sign(insp.TenantID, hash)
}

// Verify recomputes the seal of a stored inspection. predecessorHash is the
// stored hash of the previous completed inspection on the same extinguisher.
func (s *Sealer) Verify(insp *models.Inspection, predecessorHash string) models.VerificationResult {
	stored := optString(insp.Hash)
	previous := optString(insp.PreviousHash)
	computed := Hash(CanonicalPayload(insp, previous))

	result := models.VerificationResult{
		InspectionID: insp.ID,
		ComputedHash: computed,
		StoredHash:   stored,
		HashValid:    stored != "" && computed == stored,
		ChainValid:   previous != "" && previous == predecessorHash,
	}

	if insp.Signature != nil && stored != "" {
		expected := s.Sign(insp.TenantID, stored)
		result.SignatureValid = hmac.Equal([]byte(expected), []byte(*insp.Signature))
	}
	return result
}

// VerifyChain walks the completed inspections of one extinguisher in chain
// order and returns the first break, or nil when the chain is intact.
func (s *Sealer) VerifyChain(chain []*models.Inspection) *models.ChainBreak {
	previous := models.GenesisHash
	for _, insp := range chain {
		result := s.Verify(insp, previous)
		if reason := breakReason(result); reason != "" {
			return &models.ChainBreak{
				ExtinguisherID: insp.ExtinguisherID,
				InspectionID:   insp.ID,
				Reason:         reason,
			}
		}
		previous = result.StoredHash
	}
	return nil
}

func breakReason(r models.VerificationResult) string {
	switch {
	case !r.HashValid:
		return "hash mismatch"
	case !r.SignatureValid:
		return "signature mismatch"
	case !r.ChainValid:
		return "previous_hash does not match predecessor"
	}
	return ""
}
