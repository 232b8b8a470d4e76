// Package jwt signs and verifies HS256 JSON Web Tokens on top of
// github.com/golang-jwt/jwt/v5 and issues tenant-scoped tokens.
//
// Service.VerifyTenant satisfies tenant.TokenVerifier, so a service can be
// handed straight to the resolver:
//
//	svc, err := jwt.NewFromConfig(cfg)
//	if err != nil {
//		return err
//	}
//	resolver := tenant.NewResolver(directory, tenant.WithTokenVerifier(svc))
//
// Parse pins the algorithm to HS256 and requires an exp claim. When an issuer
// is configured it is required as well. Failures wrap ErrInvalidToken,
// ErrExpiredToken or ErrInvalidSignature and can be matched with errors.Is.
package jwt
