package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRelevantDocumentsEmptyKnowledgeBase(t *testing.T) {
	f := newFixture()

	docs, err := f.relevanceSvc.FindRelevantDocuments(context.Background(), "Cannot log in", "Password rejected", 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, f.llm.callCount())
}

func TestFindRelevantDocumentsRanked(t *testing.T) {
	f := newFixture()
	f.addDocument("API Errors", "Token rotation and rate limits.", "technical")
	f.addDocument("Billing FAQ", "Invoices and refunds.", "billing")
	f.addDocument("Password Reset", "Reset link instructions.", "authentication")

	// ListAll is newest first, so document 1 is "Password Reset".
	f.llm.respond(relevanceSystemPrompt, "[3, 1]")

	docs, err := f.relevanceSvc.FindRelevantDocuments(context.Background(), "API token expired", "Requests return 401", 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "API Errors", docs[0].Title)
	assert.Equal(t, "Password Reset", docs[1].Title)
}

func TestFindRelevantDocumentsIgnoresBogusIndices(t *testing.T) {
	f := newFixture()
	f.addDocument("Only Doc", "Some content.", "general")
	f.llm.respond(relevanceSystemPrompt, "[0, 1, 1, 7, -3]")

	docs, err := f.relevanceSvc.FindRelevantDocuments(context.Background(), "anything", "at all", 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Only Doc", docs[0].Title)
}

func TestFindRelevantDocumentsHonorsEmptyJudgment(t *testing.T) {
	f := newFixture()
	f.addDocument("Unrelated Doc", "Nothing to do with the ticket.", "general")
	f.llm.respond(relevanceSystemPrompt, "[]")

	docs, err := f.relevanceSvc.FindRelevantDocuments(context.Background(), "Strange error", "Unmatched", 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFindRelevantDocumentsJudgmentFailureFallsBackToKeywords(t *testing.T) {
	f := newFixture()
	f.addDocument("Password Reset", "How to reset a forgotten password.", "authentication")
	f.addDocument("Billing FAQ", "Invoices and refunds.", "billing")
	// No scripted relevance response: the judgment call fails.

	docs, err := f.relevanceSvc.FindRelevantDocuments(context.Background(), "password", "", 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Password Reset", docs[0].Title)
}

func TestFindRelevantDocumentsCapsResults(t *testing.T) {
	f := newFixture()
	f.addDocument("One", "c", "t")
	f.addDocument("Two", "c", "t")
	f.addDocument("Three", "c", "t")
	f.llm.respond(relevanceSystemPrompt, "[1, 2, 3]")

	docs, err := f.relevanceSvc.FindRelevantDocuments(context.Background(), "anything", "", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSearchDocumentsMatchesTitleContentAndTags(t *testing.T) {
	f := newFixture()
	f.addDocument("Password Reset", "Reset instructions.", "authentication")
	f.addDocument("Misc Notes", "Mentions invoices in the body.", "general")
	f.addDocument("Tagged Doc", "Unrelated body.", "billing")

	byTitle, err := f.relevanceSvc.SearchDocuments(context.Background(), "PASSWORD")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Password Reset", byTitle[0].Title)

	byContent, err := f.relevanceSvc.SearchDocuments(context.Background(), "invoices")
	require.NoError(t, err)
	require.Len(t, byContent, 1)
	assert.Equal(t, "Misc Notes", byContent[0].Title)

	byTag, err := f.relevanceSvc.SearchDocuments(context.Background(), "billing")
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "Tagged Doc", byTag[0].Title)
}

func TestSearchDocumentsTruncatesLongTerms(t *testing.T) {
	f := newFixture()
	prefix := strings.Repeat("a", 100)
	f.addDocument("Long", prefix, "general")

	// The search term is cut to the backend limit before matching, so the
	// overflowing suffix cannot prevent the hit.
	docs, err := f.relevanceSvc.SearchDocuments(context.Background(), prefix+"zzzz")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Long", docs[0].Title)
}

func TestSearchDocumentsTruncatesOnRuneBoundary(t *testing.T) {
	f := newFixture()
	// 99 ASCII bytes followed by a two-byte rune straddling the 100-byte cap.
	prefix := strings.Repeat("a", 99)
	f.addDocument("Boundary", prefix, "general")

	docs, err := f.relevanceSvc.SearchDocuments(context.Background(), prefix+"é and more")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Boundary", docs[0].Title)
}

func TestSearchDocumentsEmptyTerm(t *testing.T) {
	f := newFixture()
	f.addDocument("Doc", "content", "tag")

	docs, err := f.relevanceSvc.SearchDocuments(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
