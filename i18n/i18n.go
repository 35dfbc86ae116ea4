// Package i18n holds the translated messages of API error codes.
package i18n

import (
	"context"
	"strings"
)

// DefaultLang is used when no supported language is requested.
const DefaultLang = "pt"

type ctxKey struct{}

var messages = map[string]map[string]string{
	"pt": {
		"required":             "Obrigatório",
		"invalid":              "Inválido",
		"must_be_positive":     "Deve ser positivo",
		"must_not_be_negative": "Não pode ser negativo",
		"out_of_range":         "Fora do intervalo",

		"invalid_json":         "JSON inválido",
		"invalid_id":           "Identificador inválido",
		"validation_error":     "Dados inválidos",
		"not_found":            "Registro não encontrado",
		"conflict":             "Registro duplicado",
		"constraint_violation": "Referência inválida ou registro duplicado",
		"internal_error":       "Erro interno do servidor",
		"forbidden":            "Acesso negado",

		"token_missing":       "Token não fornecido",
		"token_invalid":       "Token inválido ou expirado",
		"invalid_credentials": "Email ou senha inválidos",
		"email_taken":         "Email já cadastrado",
		"user_not_found":      "Usuário não encontrado",
		"user_has_sales":      "Usuário possui vendas e não pode ser excluído",
		"cannot_delete_self":  "Não é possível excluir o próprio usuário",

		"client_not_found":      "Cliente não encontrado",
		"document_taken":        "Documento já cadastrado",
		"client_has_sales":      "Cliente possui vendas e não pode ser excluído",
		"vehicle_not_found":     "Veículo não encontrado",
		"vehicle_locked":        "Veículo reservado ou vendido não pode ser alterado",
		"vin_taken":             "Chassi já cadastrado",
		"vehicle_not_available": "Veículo não está disponível",

		"sale_not_found":               "Venda não encontrada",
		"sale_already_concluded":       "Venda já concluída",
		"sale_cancelled_immutable":     "Venda cancelada não pode ser concluída",
		"sale_already_cancelled":       "Venda já cancelada",
		"sale_concluded_immutable":     "Venda concluída não pode ser cancelada",
		"sale_not_negotiating":         "Apenas vendas em negociação podem ser alteradas",
		"sale_concluded_undeletable":   "Venda concluída não pode ser excluída",
		"sale_must_be_cancelled_first": "A venda deve ser cancelada antes da exclusão",
		"sale_has_payments":            "Venda possui pagamentos e não pode ser excluída",
	},
	"en": {
		"required":             "Required",
		"invalid":              "Invalid",
		"must_be_positive":     "Must be positive",
		"must_not_be_negative": "Must not be negative",
		"out_of_range":         "Out of range",

		"invalid_json":         "Invalid JSON",
		"invalid_id":           "Invalid identifier",
		"validation_error":     "Invalid data",
		"not_found":            "Record not found",
		"conflict":             "Duplicate record",
		"constraint_violation": "Invalid reference or duplicate record",
		"internal_error":       "Internal server error",
		"forbidden":            "Access denied",

		"token_missing":       "Token not provided",
		"token_invalid":       "Invalid or expired token",
		"invalid_credentials": "Invalid email or password",
		"email_taken":         "Email already registered",
		"user_not_found":      "User not found",
		"user_has_sales":      "User has sales and cannot be deleted",
		"cannot_delete_self":  "You cannot delete your own user",

		"client_not_found":      "Client not found",
		"document_taken":        "Document already registered",
		"client_has_sales":      "Client has sales and cannot be deleted",
		"vehicle_not_found":     "Vehicle not found",
		"vehicle_locked":        "Reserved or sold vehicles cannot be changed",
		"vin_taken":             "VIN already registered",
		"vehicle_not_available": "Vehicle is not available",

		"sale_not_found":               "Sale not found",
		"sale_already_concluded":       "Sale is already concluded",
		"sale_cancelled_immutable":     "Cancelled sale cannot be concluded",
		"sale_already_cancelled":       "Sale is already cancelled",
		"sale_concluded_immutable":     "Concluded sale cannot be cancelled",
		"sale_not_negotiating":         "Only sales in negotiation can be amended",
		"sale_concluded_undeletable":   "Concluded sale cannot be deleted",
		"sale_must_be_cancelled_first": "Sale must be cancelled before deletion",
		"sale_has_payments":            "Sale has payments and cannot be deleted",
	},
}

// DetectLanguage picks the first supported language of an Accept-Language
// header, falling back to DefaultLang.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if _, ok := messages[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// T translates code. Unknown languages fall back to DefaultLang and unknown
// codes to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// WithLang stores the request language in context.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// FromContext returns the language stored by WithLang.
func FromContext(ctx context.Context) (string, bool) {
	l, ok := ctx.Value(ctxKey{}).(string)
	return l, ok && l != ""
}

// LangFrom returns the request language, or DefaultLang.
func LangFrom(ctx context.Context) string {
	if l, ok := FromContext(ctx); ok {
		return l
	}
	return DefaultLang
}
