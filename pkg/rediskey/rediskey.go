package rediskey

import "fmt"

const (
	SequencePrefix         = "seq"
	ContractSequencePrefix = "seq:contract"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildContractSequenceKey returns "seq:contract:{tenantID}:{prefix}-{yy}"
func BuildContractSequenceKey(tenantID, prefix, yy string) string {
	return NamespaceKey(ContractSequencePrefix, fmt.Sprintf("%s:%s-%s", tenantID, prefix, yy))
}
