package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"Pension payment", Pension},
		{"ПЕНСИЯ за март", Pension},
		{"Перевод с карты на карту", Transfers},
		{"Перевод в АЛЬФА-БАНК", Transfers},
		{"Прочие операции", Other},
		{"Магнит у дома", Groceries},
		{"ПЯТЕРОЧКА 1234", Groceries},
		{"Метро Москва", Transport},
		{"Yandex Taxi", Transport},
		{"Кафе Пушкин", Food},
		{"Зарплата за март", Income},
		{"Unmatched merchant", Other},
		{"", Other},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.desc))
		})
	}
}

func TestClassify_RuleOrder(t *testing.T) {
	// matches both Pension and Income keywords
	assert.Equal(t, Pension, Classify("пенсия доход"))
	// matches Transfers and Groceries
	assert.Equal(t, Transfers, Classify("transfer to supermarket"))
	// matches Other and Food
	assert.Equal(t, Other, Classify("прочие кафе"))
	// matches Groceries and Transport
	assert.Equal(t, Groceries, Classify("магнит метро"))
	// matches Transport and Food
	assert.Equal(t, Transport, Classify("taxi to restaurant"))
	// matches Food and Income
	assert.Equal(t, Food, Classify("cafe income"))
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Прочее", Other},
		{"Прочие операции", Other},
		{"  прочие ", Other},
		{"", Other},
		{"other", Other},
		{"Пенсия", Pension},
		{"groceries", Groceries},
		{"Travel", "Travel"},
		{" Подписки ", "Подписки"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonical(tt.in), tt.in)
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, []string{Pension, Transfers, Other, Groceries, Transport, Food, Income}, Labels())

	l := Labels()
	l[0] = "mutated"
	assert.Equal(t, Pension, Labels()[0])
}
