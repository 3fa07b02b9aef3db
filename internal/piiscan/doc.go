// Package piiscan detects sensitive data patterns in raw text.
//
// A fixed catalog of rules covers contact details, financial identifiers,
// cloud and API credentials, cryptographic key blocks, network identifiers
// and personal-ID numbers. Matches from all rules are pooled and swept so
// the returned findings never overlap; display values are always masked,
// never the raw match.
package piiscan
