package core

import "errors"

// ValidationError rejects input before any state changes. Message is meant
// for the operator.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthError reports a failed credential or permission check.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrEmptyName              = &ValidationError{Field: "name", Message: "O nome é obrigatório"}
	ErrEmptyBI                = &ValidationError{Field: "bi", Message: "O número do BI é obrigatório"}
	ErrEmptyPhone             = &ValidationError{Field: "phone", Message: "O telefone é obrigatório"}
	ErrEmptyLocation          = &ValidationError{Field: "location", Message: "A localização é obrigatória"}
	ErrEmptyTap               = &ValidationError{Field: "tap", Message: "O TAP é obrigatório"}
	ErrEmptyEmail             = &ValidationError{Field: "email", Message: "O email é obrigatório"}
	ErrEmptyPassword          = &ValidationError{Field: "password", Message: "A senha é obrigatória"}
	ErrEmptyDescription       = &ValidationError{Field: "description", Message: "A descrição é obrigatória"}
	ErrDescriptionTooLong     = &ValidationError{Field: "description", Message: "A descrição é demasiado longa (máximo 200 caracteres)"}
	ErrInvalidAmount          = &ValidationError{Field: "amount", Message: "O valor deve ser maior que zero"}
	ErrInvalidMethod          = &ValidationError{Field: "method", Message: "Método de pagamento inválido"}
	ErrInvalidPaymentType     = &ValidationError{Field: "type", Message: "Tipo de pagamento inválido"}
	ErrInvalidTransactionType = &ValidationError{Field: "type", Message: "Tipo de transacção inválido"}
	ErrInvalidCategory        = &ValidationError{Field: "category", Message: "Categoria inválida"}
	ErrInvalidReferenceMonth  = &ValidationError{Field: "referenceMonth", Message: "Mês de referência inválido (use AAAA-MM)"}
	ErrNegativeMonths         = &ValidationError{Field: "monthsWithoutPayment", Message: "Os meses sem pagamento não podem ser negativos"}
	ErrNegativeDebt           = &ValidationError{Field: "debt", Message: "A dívida não pode ser negativa"}
	ErrBossPasswordTooShort   = &ValidationError{Field: "password", Message: "A senha do chefe deve ter pelo menos 6 caracteres"}
	ErrManagerPasswordShort   = &ValidationError{Field: "password", Message: "A senha deve ter pelo menos 4 caracteres"}
	ErrPasswordMismatch       = &ValidationError{Field: "confirmPassword", Message: "As senhas não coincidem"}
	ErrDuplicateManager       = &ValidationError{Field: "name", Message: "Já existe um gerente com esse nome"}

	ErrInvalidCredentials   = &AuthError{Message: "Nome ou senha incorrectos"}
	ErrWrongBossPassword    = &AuthError{Message: "Senha do chefe incorrecta"}
	ErrWrongCurrentPassword = &AuthError{Message: "Senha actual incorrecta"}
	ErrCannotDeleteManager  = &AuthError{Message: "Senha do chefe incorrecta ou não pode excluir a si mesmo"}
	ErrNotLoggedIn          = &AuthError{Message: "Sessão inválida ou expirada"}

	ErrNotFound          = errors.New("not found")
	ErrInvalidCodeFormat = errors.New("invalid code format")
	ErrSetupRequired     = errors.New("setup required")
	ErrSetupComplete     = errors.New("setup already complete")
)

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var a *AuthError
	return errors.As(err, &a)
}
