package identity

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPAuthenticator wraps time-based one-time passwords for the second
// login factor.
type TOTPAuthenticator struct {
	issuer string
}

func NewTOTPAuthenticator(issuer string) *TOTPAuthenticator {
	return &TOTPAuthenticator{issuer: issuer}
}

// GenerateSecret returns the provisioning URI (for the QR code) and the raw
// secret. SHA1 for authenticator-app compatibility.
func (a *TOTPAuthenticator) GenerateSecret(accountName string) (uri, secret string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.issuer,
		AccountName: accountName,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.URL(), key.Secret(), nil
}

func (a *TOTPAuthenticator) VerifyCode(secret, code string) bool {
	return totp.Validate(code, secret)
}
