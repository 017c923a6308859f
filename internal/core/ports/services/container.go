package services

// ServiceContainer bundles the service facades for injection into the HTTP
// layer.
type ServiceContainer struct {
	Expense    ExpenseSvcFacade
	Balance    BalanceSvcFacade
	Settlement SettlementSvcFacade
	Currency   CurrencySvcFacade
	Membership MembershipSvcFacade
}
