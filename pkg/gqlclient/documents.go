package gqlclient

import (
	"sort"
	"strings"

	"github.com/platinummonkey/novo-auth/pkg/transport"
)

// Fragments shared by the documents below.
const (
	ModuleSummaryFragment = `fragment ModuleSummary on Module {
  slug
  name
  status
}`

	UserCoreFragment = `fragment UserCore on User {
  id
  email
  fullName
  verified
  mfaEnabled
  modules {
    ...ModuleSummary
  }
}`
)

// Document is a named GraphQL document with the fragments it needs.
type Document struct {
	Name      string
	Kind      transport.OperationKind
	Body      string
	Fragments []string
}

// Source returns the document text with its fragments appended.
func (d Document) Source() string {
	if len(d.Fragments) == 0 {
		return d.Body
	}
	parts := append([]string{d.Body}, d.Fragments...)
	return strings.Join(parts, "\n\n")
}

// Operation binds variables to the document.
func (d Document) Operation(variables map[string]interface{}) transport.Operation {
	return transport.Operation{
		Name:      d.Name,
		Kind:      d.Kind,
		Query:     d.Source(),
		Variables: variables,
	}
}

var userCoreFragments = []string{UserCoreFragment, ModuleSummaryFragment}

// Queries.
var (
	MeQuery = Document{
		Name: "Me",
		Kind: transport.KindQuery,
		Body: `query Me {
  me {
    ...UserCore
  }
}`,
		Fragments: userCoreFragments,
	}

	SessionStatusQuery = Document{
		Name: "SessionStatus",
		Kind: transport.KindQuery,
		Body: `query SessionStatus {
  sessionStatus {
    session {
      expiresAt
    }
    environment {
      maintenanceMode
    }
  }
}`,
	}
)

// Mutations.
var (
	AuthLoginMutation = Document{
		Name: "AuthLogin",
		Kind: transport.KindMutation,
		Body: `mutation AuthLogin($input: AuthLoginInput!) {
  authLogin(input: $input) {
    session {
      accessToken
      refreshToken
      expiresAt
    }
    mfa {
      required
      methods
    }
    user {
      ...UserCore
    }
  }
}`,
		Fragments: userCoreFragments,
	}

	AuthSignupMutation = Document{
		Name: "AuthSignup",
		Kind: transport.KindMutation,
		Body: `mutation AuthSignup($input: AuthSignupInput!) {
  authSignup(input: $input) {
    requiresVerification
    user {
      id
      email
      status
    }
  }
}`,
	}

	AuthVerifyEmailMutation = Document{
		Name: "AuthVerifyEmail",
		Kind: transport.KindMutation,
		Body: `mutation AuthVerifyEmail($input: AuthVerifyEmailInput!) {
  authVerifyEmail(input: $input) {
    status
    user {
      id
      verified
    }
  }
}`,
	}

	AuthMfaEnrollMutation = Document{
		Name: "AuthMfaEnroll",
		Kind: transport.KindMutation,
		Body: `mutation AuthMfaEnroll {
  authMfaEnroll {
    secret {
      base32
      otpauthUrl
    }
    recoveryCodes
  }
}`,
	}

	AuthMfaVerifyMutation = Document{
		Name: "AuthMfaVerify",
		Kind: transport.KindMutation,
		Body: `mutation AuthMfaVerify($input: AuthMfaVerifyInput!) {
  authMfaVerify(input: $input) {
    success
    recoveryCodes
  }
}`,
	}

	AuthModuleRedirectMutation = Document{
		Name: "AuthModuleRedirect",
		Kind: transport.KindMutation,
		Body: `mutation AuthModuleRedirect($input: AuthModuleRedirectInput!) {
  authModuleRedirect(input: $input) {
    url
    expiresAt
  }
}`,
	}
)

var catalog = map[string]Document{}

func init() {
	for _, d := range []Document{
		MeQuery,
		SessionStatusQuery,
		AuthLoginMutation,
		AuthSignupMutation,
		AuthVerifyEmailMutation,
		AuthMfaEnrollMutation,
		AuthMfaVerifyMutation,
		AuthModuleRedirectMutation,
	} {
		catalog[d.Name] = d
	}
}

// Lookup returns the catalog document called name.
func Lookup(name string) (Document, bool) {
	d, ok := catalog[name]
	return d, ok
}

// Names returns every catalog document name, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
