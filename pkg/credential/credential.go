// Package credential guarda o token da Focus NFe e monta o header de autenticação.
//
// O token é opaco e nunca aparece em logs: String, GoString e MarshalJSON
// devolvem sempre a versão mascarada.
package credential

import (
	"encoding/base64"
	"errors"
)

const redacted = "****"

// ErrEmptyToken é retornado quando nenhuma origem forneceu um token.
var ErrEmptyToken = errors.New("credential: token vazio")

// Credential é o token de acesso à API upstream. Imutável após a criação.
type Credential struct {
	token string
}

// New cria uma credencial, rejeitando token vazio.
func New(token string) (Credential, error) {
	if token == "" {
		return Credential{}, ErrEmptyToken
	}
	return Credential{token: token}, nil
}

// AuthorizationHeader monta o Basic Auth usado pela Focus NFe:
// o token é o usuário e a senha é vazia.
func (c Credential) AuthorizationHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.token+":"))
}

// IsZero indica se a credencial não foi inicializada.
func (c Credential) IsZero() bool {
	return c.token == ""
}

func (c Credential) String() string {
	return redacted
}

func (c Credential) GoString() string {
	return "credential.Credential{" + redacted + "}"
}

func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
