package enums

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	cases := []struct {
		raw     string
		want    PaymentMethod
		wantErr bool
	}{
		{raw: "cash", want: PaymentMethodCash},
		{raw: "pix", want: PaymentMethodPix},
		{raw: "card", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParsePaymentMethod(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("expected %q got %q", tc.want, got)
		}
	}
}

func TestPaymentMethodString(t *testing.T) {
	if PaymentMethodCash.String() != "cash" {
		t.Fatalf("unexpected string %q", PaymentMethodCash.String())
	}
	if !PaymentMethodPix.IsValid() {
		t.Fatal("pix should be valid")
	}
	if PaymentMethod("cheque").IsValid() {
		t.Fatal("cheque should not be valid")
	}
}
