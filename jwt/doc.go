// Package jwt inspects bearer tokens held by the console without verifying
// their signature. The console never trusts these claims for authorization;
// they only let a restored session discard an already-expired token and
// recover a role hint before the profile endpoint answers.
package jwt
