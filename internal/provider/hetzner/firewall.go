package hetzner

import (
	"context"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/dip/internal/util/labels"
)

var anywhere = func() []net.IPNet {
	_, v4, _ := net.ParseCIDR("0.0.0.0/0")
	_, v6, _ := net.ParseCIDR("::/0")
	return []net.IPNet{*v4, *v6}
}()

// firewallRules opens the ports the control plane needs from outside:
// SSH for provisioning, the Kubernetes API, and HTTP/HTTPS for ingress.
// ICMP stays open for reachability checks.
func firewallRules() []hcloud.FirewallRule {
	tcpPorts := []string{"22", "6443", "80", "443"}
	rules := make([]hcloud.FirewallRule, 0, len(tcpPorts)+1)
	for i := range tcpPorts {
		rules = append(rules, hcloud.FirewallRule{
			Direction: hcloud.FirewallRuleDirectionIn,
			Protocol:  hcloud.FirewallRuleProtocolTCP,
			Port:      &tcpPorts[i],
			SourceIPs: anywhere,
		})
	}
	rules = append(rules, hcloud.FirewallRule{
		Direction: hcloud.FirewallRuleDirectionIn,
		Protocol:  hcloud.FirewallRuleProtocolICMP,
		SourceIPs: anywhere,
	})
	return rules
}

// EnsureFirewall creates the cluster firewall if absent. The firewall
// is applied to all servers carrying the cluster label.
func (c *Client) EnsureFirewall(ctx context.Context, name string, lbls map[string]string) error {
	existing, _, err := c.client.Firewall.Get(ctx, name)
	if err != nil {
		return providerError("failed to get firewall "+name, err)
	}
	if existing != nil {
		return nil
	}

	selector := labels.SelectorForCluster(lbls[labels.KeyCluster])
	err = c.withRetry(ctx, func(ctx context.Context) error {
		_, _, err := c.client.Firewall.Create(ctx, hcloud.FirewallCreateOpts{
			Name:   name,
			Labels: lbls,
			Rules:  firewallRules(),
			ApplyTo: []hcloud.FirewallResource{{
				Type: hcloud.FirewallResourceTypeLabelSelector,
				LabelSelector: &hcloud.FirewallResourceLabelSelector{
					Selector: selector,
				},
			}},
		})
		if isUniquenessError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to create firewall "+name, err)
	}
	return nil
}

func (c *Client) deleteFirewall(ctx context.Context, fw *hcloud.Firewall) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.client.Firewall.Delete(ctx, fw)
		if IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return providerError("failed to delete firewall "+fw.Name, err)
	}
	return nil
}
