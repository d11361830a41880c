package finance

// DocumentType classifies a ledger document by its commercial direction
type DocumentType string

const (
	// DocumentTypeCustomerInvoice is an invoice issued to a customer (money in)
	DocumentTypeCustomerInvoice DocumentType = "CUSTOMER_INVOICE"
	// DocumentTypeVendorBill is a bill received from a supplier (money out)
	DocumentTypeVendorBill DocumentType = "VENDOR_BILL"
	// DocumentTypeCustomerCreditNote is a refund issued to a customer
	DocumentTypeCustomerCreditNote DocumentType = "CUSTOMER_CREDIT_NOTE"
	// DocumentTypeVendorCreditNote is a refund received from a supplier
	DocumentTypeVendorCreditNote DocumentType = "VENDOR_CREDIT_NOTE"
)

// IsValid checks if the document type is valid
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeCustomerInvoice, DocumentTypeVendorBill,
		DocumentTypeCustomerCreditNote, DocumentTypeVendorCreditNote:
		return true
	}
	return false
}

// String returns the string representation of the document type
func (t DocumentType) String() string {
	return string(t)
}

// IsInvoice returns true for payable documents (invoices and bills),
// false for credit notes
func (t DocumentType) IsInvoice() bool {
	return t == DocumentTypeCustomerInvoice || t == DocumentTypeVendorBill
}

// Role returns the partner role the document type resolves to.
// Customer documents group separately from supplier documents even when
// the same partner plays both roles.
func (t DocumentType) Role() PartnerRole {
	switch t {
	case DocumentTypeCustomerInvoice, DocumentTypeCustomerCreditNote:
		return PartnerRoleCustomer
	default:
		return PartnerRoleSupplier
	}
}

// ReversalType returns the credit note type that reverses this document type
func (t DocumentType) ReversalType() DocumentType {
	if t == DocumentTypeVendorBill {
		return DocumentTypeVendorCreditNote
	}
	return DocumentTypeCustomerCreditNote
}

// PartnerRole distinguishes the customer and supplier sides of a partner
type PartnerRole string

const (
	PartnerRoleCustomer PartnerRole = "CUSTOMER"
	PartnerRoleSupplier PartnerRole = "SUPPLIER"
)

// IsValid checks if the partner role is valid
func (r PartnerRole) IsValid() bool {
	return r == PartnerRoleCustomer || r == PartnerRoleSupplier
}

// String returns the string representation of the partner role
func (r PartnerRole) String() string {
	return string(r)
}

// PaymentType represents the direction of a payment
type PaymentType string

const (
	// PaymentTypeInbound receives money (customer payments)
	PaymentTypeInbound PaymentType = "INBOUND"
	// PaymentTypeOutbound sends money (vendor payments, reimbursements)
	PaymentTypeOutbound PaymentType = "OUTBOUND"
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeInbound || t == PaymentTypeOutbound
}

// String returns the string representation of the payment type
func (t PaymentType) String() string {
	return string(t)
}

// PaymentMethod represents how a payment is settled
type PaymentMethod string

const (
	// PaymentMethodBatchDeposit encases several checks at once through a
	// bank deposit batch. Default for multi-invoice registration.
	PaymentMethodBatchDeposit PaymentMethod = "BATCH_DEPOSIT"
	// PaymentMethodCheck settles by a single check
	PaymentMethodCheck PaymentMethod = "CHECK"
	// PaymentMethodBankTransfer settles by wire transfer
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	// PaymentMethodManual is paid by cash or any method outside the system
	PaymentMethodManual PaymentMethod = "MANUAL"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBatchDeposit, PaymentMethodCheck,
		PaymentMethodBankTransfer, PaymentMethodManual:
		return true
	}
	return false
}

// String returns the string representation of the payment method
func (m PaymentMethod) String() string {
	return string(m)
}

// InvoiceStatus represents the lifecycle state of a ledger document
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPosted    InvoiceStatus = "POSTED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPosted, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s InvoiceStatus) String() string {
	return string(s)
}

// PaymentState tracks how much of a posted document has been settled
type PaymentState string

const (
	PaymentStateNotPaid PaymentState = "NOT_PAID"
	PaymentStatePartial PaymentState = "PARTIAL"
	PaymentStatePaid    PaymentState = "PAID"
)

// IsValid checks if the payment state is valid
func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentStateNotPaid, PaymentStatePartial, PaymentStatePaid:
		return true
	}
	return false
}

// IsOpen returns true while the document can still receive payments
func (s PaymentState) IsOpen() bool {
	return s == PaymentStateNotPaid || s == PaymentStatePartial
}

// String returns the string representation of the payment state
func (s PaymentState) String() string {
	return string(s)
}

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusDraft     PaymentStatus = "DRAFT"
	PaymentStatusPosted    PaymentStatus = "POSTED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusDraft, PaymentStatusPosted, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of the payment status
func (s PaymentStatus) String() string {
	return string(s)
}

// RegistrationState is the lifecycle of a payment registration.
// Draft accepts line edits, validated is a transient check-pass with no
// side effects, posted is terminal.
type RegistrationState string

const (
	RegistrationStateDraft     RegistrationState = "DRAFT"
	RegistrationStateValidated RegistrationState = "VALIDATED"
	RegistrationStatePosted    RegistrationState = "POSTED"
)

// IsValid checks if the registration state is valid
func (s RegistrationState) IsValid() bool {
	switch s {
	case RegistrationStateDraft, RegistrationStateValidated, RegistrationStatePosted:
		return true
	}
	return false
}

// IsTerminal returns true once the registration has been posted
func (s RegistrationState) IsTerminal() bool {
	return s == RegistrationStatePosted
}

// String returns the string representation of the registration state
func (s RegistrationState) String() string {
	return string(s)
}

// BatchDepositStatus represents the lifecycle state of a batch deposit
type BatchDepositStatus string

const (
	BatchDepositStatusDraft      BatchDepositStatus = "DRAFT"
	BatchDepositStatusSent       BatchDepositStatus = "SENT"
	BatchDepositStatusReconciled BatchDepositStatus = "RECONCILED"
)

// IsValid checks if the batch deposit status is valid
func (s BatchDepositStatus) IsValid() bool {
	switch s {
	case BatchDepositStatusDraft, BatchDepositStatusSent, BatchDepositStatusReconciled:
		return true
	}
	return false
}

// String returns the string representation of the batch deposit status
func (s BatchDepositStatus) String() string {
	return string(s)
}
