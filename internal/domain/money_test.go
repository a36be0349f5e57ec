package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{name: "Whole", input: "200", want: Cents(20000)},
		{name: "OneDecimal", input: "12.5", want: Cents(1250)},
		{name: "TwoDecimals", input: " 0.01 ", want: Cents(1)},
		{name: "TrailingZeros", input: "3.100", want: Cents(310)},
		{name: "SubCent", input: "0.001", wantErr: true},
		{name: "Garbage", input: "ten", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAmount))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoneyFromFloat(t *testing.T) {
	assert.Equal(t, Cents(51235), MoneyFromFloat(512.35))
	assert.Equal(t, Cents(10), MoneyFromFloat(0.1))
	assert.Equal(t, Cents(30), MoneyFromFloat(0.1+0.2))
	assert.Equal(t, Cents(50000), MoneyFromFloat(500))
}

func TestMoney_Arithmetic(t *testing.T) {
	a := Cents(12000)

	assert.Equal(t, Cents(20000), a.Add(Cents(8000)))

	rest, err := a.Sub(Cents(12000))
	require.NoError(t, err)
	assert.True(t, rest.IsZero())

	_, err = a.Sub(Cents(12001))
	assert.True(t, errors.Is(err, ErrNegativeResult))

	assert.Equal(t, -1, Cents(1).Cmp(Cents(2)))
	assert.Equal(t, 0, Cents(2).Cmp(Cents(2)))
	assert.Equal(t, 1, Cents(3).Cmp(Cents(2)))
	assert.Equal(t, "120.00", a.String())
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(Cents(1)))
	assert.True(t, errors.Is(ValidateAmount(Cents(0)), ErrInvalidAmount))
	assert.True(t, errors.Is(ValidateAmount(Cents(-5)), ErrInvalidAmount))
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: Cents(1250)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":12.50}`, string(data))

	var in struct {
		Bare   Money `json:"bare"`
		Quoted Money `json:"quoted"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"bare":80,"quoted":"0.25"}`), &in))
	assert.Equal(t, Cents(8000), in.Bare)
	assert.Equal(t, Cents(25), in.Quoted)

	var bad struct {
		Amount Money `json:"amount"`
	}
	err = json.Unmarshal([]byte(`{"amount":1.234}`), &bad)
	assert.Error(t, err)
}

func TestUnreconciledError(t *testing.T) {
	cause := errors.New("deposit timed out")
	err := error(&UnreconciledError{ReconciliationID: "rec-1", Operation: TransactionKindLoan, Err: cause})

	assert.True(t, errors.Is(err, ErrUnreconciledSettlement))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrSettlementFailed))

	var ue *UnreconciledError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "rec-1", ue.ReconciliationID)
}

func TestMember_TotalDebtAndClone(t *testing.T) {
	m := &Member{ID: "b", Debts: map[string]Money{"a": Cents(8000), "c": Cents(2000)}, TransactionIDs: []string{"t1"}}
	assert.Equal(t, Cents(10000), m.TotalDebt())

	c := m.Clone()
	c.Debts["a"] = 0
	c.TransactionIDs[0] = "changed"
	assert.Equal(t, Cents(8000), m.Debts["a"])
	assert.Equal(t, "t1", m.TransactionIDs[0])
}
