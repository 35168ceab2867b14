package domain

// DisplayStatus 面向用户的展示状态，与单渠道状态是两个不同的类型
type DisplayStatus string

const (
	DisplayPending              DisplayStatus = "Pending"
	DisplayRequestedForApproval DisplayStatus = "Requested For Approval"
	DisplayApproved             DisplayStatus = "Approved"
	DisplayRejected             DisplayStatus = "Rejected"
	DisplayFailedPending        DisplayStatus = "Failed (Pending)"
	DisplayPartiallyApproved    DisplayStatus = "Partially Approved" // 一方通过，另一方仍在处理
	DisplayApprovedPartial      DisplayStatus = "Approved (Partial)" // 一方通过，另一方已拒绝，终态
)

// DeriveStatus 根据两个渠道状态和查看者范围推导展示状态。纯函数
func DeriveStatus(s *Signup, viewer PermissionScope) DisplayStatus {
	if s.ApplicationType != ApplicationTypeBoth {
		relevant := s.ApplicationType.RelevantProviders()
		if len(relevant) == 0 {
			return globalDisplay(s.GlobalStatus)
		}
		return s.mapProviderStatus(s.StatusOf(relevant[0]))
	}

	switch viewer {
	case ScopeWebTrafficOnly:
		return s.mapProviderStatus(s.StatusOf(ProviderCake))
	case ScopeCallTrafficOnly:
		return s.mapProviderStatus(s.StatusOf(ProviderRingba))
	}

	cake, ringba := s.StatusOf(ProviderCake), s.StatusOf(ProviderRingba)
	approved := count(cake, ringba, func(st ProviderStatus) bool { return st == ProviderStatusApproved })
	rejected := count(cake, ringba, func(st ProviderStatus) bool { return st == ProviderStatusRejected })
	open := count(cake, ringba, func(st ProviderStatus) bool { return st == ProviderStatusFailed || st.IsUnattempted() })
	failed := count(cake, ringba, func(st ProviderStatus) bool { return st == ProviderStatusFailed })

	// 完全通过和完全拒绝优先于部分状态判断
	switch {
	case approved == 2:
		return DisplayApproved
	case approved == 1 && rejected == 1:
		return DisplayApprovedPartial
	case approved == 1:
		return DisplayPartiallyApproved
	case open == 2 && failed > 0:
		return DisplayFailedPending
	case open == 2:
		return s.pendingDisplay()
	case rejected == 2:
		return DisplayRejected
	}
	return globalDisplay(s.GlobalStatus)
}

func (s *Signup) mapProviderStatus(st ProviderStatus) DisplayStatus {
	switch st {
	case ProviderStatusApproved:
		return DisplayApproved
	case ProviderStatusRejected:
		return DisplayRejected
	case ProviderStatusFailed:
		return DisplayFailedPending
	}
	return s.pendingDisplay()
}

// pendingDisplay 未尝试时以全局工作流状态区分是否已提交审批
func (s *Signup) pendingDisplay() DisplayStatus {
	if s.GlobalStatus == GlobalStatusRequestedForApproval {
		return DisplayRequestedForApproval
	}
	return DisplayPending
}

func globalDisplay(g GlobalStatus) DisplayStatus {
	switch g {
	case GlobalStatusApproved:
		return DisplayApproved
	case GlobalStatusRejected:
		return DisplayRejected
	case GlobalStatusRequestedForApproval:
		return DisplayRequestedForApproval
	}
	return DisplayPending
}

func count(a, b ProviderStatus, pred func(ProviderStatus) bool) int {
	n := 0
	if pred(a) {
		n++
	}
	if pred(b) {
		n++
	}
	return n
}
