package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Сентинельные значения директив в conditions.
const (
	directiveEndToken      = "END"
	directivePreviousToken = "PREVIOUS"
)

// ErrMalformedDirective — значение в conditions не является ни числом,
// ни "END", ни "PREVIOUS". Неизвестная форма — это ошибка конфигурации
// шаблона, а не "нет директивы".
var ErrMalformedDirective = errors.New("malformed condition directive")

// DirectiveKind — вид директивы перехода.
type DirectiveKind int

const (
	// DirectiveNone — директива не задана, переход по умолчанию
	// на следующий order.
	DirectiveNone DirectiveKind = iota

	// DirectiveOrder — переход на конкретный order шаблона.
	DirectiveOrder

	// DirectiveEnd — завершение процесса.
	DirectiveEnd

	// DirectivePrevious — реактивация шага order-1.
	DirectivePrevious
)

// Directive — распарсенный результат conditions[action].
//
// Сырые JSON-значения из шаблона парсятся один раз через
// ParseDirective, дальше движок работает только с этим типом.
type Directive struct {
	Kind DirectiveKind

	// Order — целевой order при Kind == DirectiveOrder.
	Order int
}

// String возвращает читаемое представление директивы.
func (d Directive) String() string {
	switch d.Kind {
	case DirectiveOrder:
		return fmt.Sprintf("go-to-order(%d)", d.Order)
	case DirectiveEnd:
		return "end"
	case DirectivePrevious:
		return "previous"
	default:
		return "none"
	}
}

// ParseDirective парсит одно значение из карты conditions.
//
// Допустимые формы:
//   - целое число >= 1 — order целевого шага
//   - строка "END" — завершение процесса
//   - строка "PREVIOUS" — возврат на предыдущий шаг
//
// Всё остальное — ErrMalformedDirective.
func ParseDirective(raw json.RawMessage) (Directive, error) {
	if len(raw) == 0 {
		return Directive{Kind: DirectiveNone}, nil
	}

	var order int
	if err := json.Unmarshal(raw, &order); err == nil {
		if order < 1 {
			return Directive{}, fmt.Errorf("%w: step order %d out of range", ErrMalformedDirective, order)
		}
		return Directive{Kind: DirectiveOrder, Order: order}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case directiveEndToken:
			return Directive{Kind: DirectiveEnd}, nil
		case directivePreviousToken:
			return Directive{Kind: DirectivePrevious}, nil
		default:
			return Directive{}, fmt.Errorf("%w: unknown token %q", ErrMalformedDirective, s)
		}
	}

	return Directive{}, fmt.Errorf("%w: %s", ErrMalformedDirective, string(raw))
}

// ResolveDirective возвращает директиву шага для данного действия.
//
// Если условий нет, действие пустое или не является ключом —
// возвращается DirectiveNone (переход на order+1 по умолчанию).
func (s *Step) ResolveDirective(action string) (Directive, error) {
	if len(s.Conditions) == 0 || action == "" {
		return Directive{Kind: DirectiveNone}, nil
	}

	raw, ok := s.Conditions[action]
	if !ok {
		return Directive{Kind: DirectiveNone}, nil
	}

	d, err := ParseDirective(raw)
	if err != nil {
		return Directive{}, fmt.Errorf("step order %d, action %q: %w", s.Order, action, err)
	}
	return d, nil
}
