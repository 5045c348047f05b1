package service

import (
	"context"
)

type seedDocument struct {
	title   string
	content string
	url     string
	tags    []string
}

// Built-in articles for demo environments so AI matching has material to
// work with before any real content is scraped.
var demoDocuments = []seedDocument{
	{
		title: "Password Reset Guide",
		content: `# Resetting Your Password

If you can no longer sign in, request a password reset from the login page.

1. Open the login page and choose "Forgot password".
2. Enter the email address on your account.
3. Check your inbox for the reset link; it expires after 30 minutes.
4. If the email does not arrive, check your spam folder and confirm the
   address matches the one on file.
5. Still stuck? Reply to this ticket and an agent will verify your account
   manually.

Accounts are locked after ten failed attempts; the lock clears automatically
after 15 minutes.`,
		url:  "https://help.deskflow.dev/account/password-reset",
		tags: []string{"authentication", "password", "login", "account"},
	},
	{
		title: "Billing and Invoices FAQ",
		content: `# Billing FAQ

## When am I charged?
Pro subscriptions bill on the first day of each monthly cycle. Invoices are
emailed to the billing contact and available from the account settings page.

## How do I update my payment method?
Open Settings, choose Billing, and select "Update card". Changes apply to the
next invoice.

## Refunds
Charges within the last 30 days are refundable on request. Contact support
with the invoice number and we will process it within 5 business days.`,
		url:  "https://help.deskflow.dev/billing/faq",
		tags: []string{"billing", "invoice", "payment", "refund"},
	},
	{
		title: "Troubleshooting API Connection Errors",
		content: `# API Connection Errors

Common causes for failed API requests:

1. **Expired token** – tokens rotate every 24 hours; request a fresh one from
   the dashboard.
2. **Wrong base URL** – production traffic goes to api.deskflow.dev; the
   sandbox host rejects production keys.
3. **Rate limiting** – watch for HTTP 429 and honor the Retry-After header.
4. **TLS failures** – we require TLS 1.2 or newer.

If errors persist, capture the request id from the response headers and
include it when opening a ticket.`,
		url:  "https://help.deskflow.dev/api/troubleshooting",
		tags: []string{"technical", "api", "errors"},
	},
}

// SeedDemoContent inserts the built-in articles. Documents already present
// (matched by title) are skipped, so the operation is idempotent.
func (s *KnowledgeService) SeedDemoContent(ctx context.Context) (int, error) {
	existing, err := s.knowledgeRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, doc := range existing {
		seen[doc.Title] = true
	}

	inserted := 0
	for _, seed := range demoDocuments {
		if seen[seed.title] {
			continue
		}
		url := seed.url
		if _, err := s.StoreDocument(ctx, seed.title, seed.content, &url, seed.tags); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
