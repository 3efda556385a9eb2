package types

// ParamMapping mapeia param da req para campo nos dados
type ParamMapping struct {
	Name   string `json:"name"`
	MapsTo string `json:"maps_to"`
}

// Response para status e body
type Response struct {
	Status int         `json:"status"`
	Body   interface{} `json:"body,omitempty"`
}

// FocusError é o corpo de erro no formato da API da Focus NFe.
type FocusError struct {
	Codigo   string `json:"codigo"`
	Mensagem string `json:"mensagem"`
}

// Document é uma NFSe registrada no emulador.
type Document struct {
	Ref               string                 `json:"ref"`
	Status            string                 `json:"status"`
	Numero            string                 `json:"numero,omitempty"`
	CodigoVerificacao string                 `json:"codigo_verificacao,omitempty"`
	DataEmissao       string                 `json:"data_emissao,omitempty"`
	Payload           map[string]interface{} `json:"-"`
}
