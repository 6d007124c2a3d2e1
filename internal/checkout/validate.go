package checkout

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/DNLCodess/ReezBlank/internal/domain"
)

// ValidationError maps shipping fields (by their JSON names) to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("invalid shipping details: %s", strings.Join(keys, ", "))
}

// NormalizeShipping trims every field and fills in the default country and
// delivery option.
func NormalizeShipping(info domain.ShippingInfo) domain.ShippingInfo {
	info.Email = strings.TrimSpace(info.Email)
	info.FirstName = strings.TrimSpace(info.FirstName)
	info.LastName = strings.TrimSpace(info.LastName)
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	info.PostalCode = strings.TrimSpace(info.PostalCode)
	info.Country = strings.TrimSpace(info.Country)
	info.Phone = strings.TrimSpace(info.Phone)
	info.DeliveryOption = strings.TrimSpace(info.DeliveryOption)

	if info.Country == "" {
		info.Country = domain.DefaultCountry
	}
	if info.DeliveryOption == "" {
		info.DeliveryOption = DefaultDeliveryOption
	}
	return info
}

// ValidateShipping expects normalized input.
func ValidateShipping(info domain.ShippingInfo) error {
	fields := map[string]string{}

	if info.Email == "" {
		fields["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(info.Email); err != nil {
		fields["email"] = "Email is invalid"
	}
	if info.FirstName == "" {
		fields["first_name"] = "First name is required"
	}
	if info.LastName == "" {
		fields["last_name"] = "Last name is required"
	}
	if info.Address == "" {
		fields["address"] = "Address is required"
	}
	if info.City == "" {
		fields["city"] = "City is required"
	}
	if info.PostalCode == "" {
		fields["postal_code"] = "Postal code is required"
	}
	if info.Phone == "" {
		fields["phone"] = "Phone number is required"
	}
	if !knownCountry(info.Country) {
		fields["country"] = "Country is not supported"
	}
	if _, ok := LookupDelivery(info.DeliveryOption); !ok {
		fields["delivery_option"] = "Delivery option is not available"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func knownCountry(country string) bool {
	for _, c := range domain.Countries {
		if c == country {
			return true
		}
	}
	return false
}
