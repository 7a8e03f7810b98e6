package rescache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragstore/internal/domain"
)

// Fingerprint builds a deterministic digest of everything that affects a
// search result. Doc IDs and filter keys are sorted so semantically equal
// requests hash the same regardless of field order in the payload.
func Fingerprint(req domain.SearchRequest) string {
	var b strings.Builder
	b.WriteString(req.TenantID)
	b.WriteByte('|')
	b.WriteString(normalizeQuery(req.Query))
	b.WriteByte('|')
	b.WriteString(req.ModelName)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.TopK))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(req.Threshold, 'f', -1, 64))
	b.WriteByte('|')

	docs := append([]string(nil), req.DocumentIDs...)
	sort.Strings(docs)
	b.WriteString(strings.Join(docs, ","))
	b.WriteByte('|')

	filterKeys := make([]string, 0, len(req.Filters))
	for k := range req.Filters {
		filterKeys = append(filterKeys, k)
	}
	sort.Strings(filterKeys)
	for _, k := range filterKeys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(req.Filters[k])
		b.WriteByte(';')
	}
	b.WriteByte('|')

	b.WriteString(strconv.FormatBool(req.IncludeContent))
	b.WriteByte(',')
	b.WriteString(strconv.FormatBool(req.IncludeMetadata))

	h := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(h[:])
}

// normalizeQuery folds case and collapses runs of whitespace so trivially
// reworded queries share a cache entry.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
