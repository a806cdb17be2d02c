package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/amiwrpremium/xtls-crud/internal/service"
)

func init() {
	inboundCmd := &cobra.Command{
		Use:   "inbound",
		Short: "Inbound management",
	}

	var listProtocol, listTag string
	var listLimit int
	var listEnabled, listDisabled bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List inbounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.InboundListInput{Protocol: listProtocol, Tag: listTag, Limit: listLimit}
			switch {
			case listEnabled && listDisabled:
				return errors.New("--enabled and --disabled are mutually exclusive")
			case listEnabled:
				input.Enable = ptr(true)
			case listDisabled:
				input.Enable = ptr(false)
			}
			return withInboundService(cmd, func(inbounds service.InboundService) error {
				list, err := inbounds.List(cmd.Context(), input)
				if err != nil {
					return err
				}
				return printInbounds(cmd.OutOrStdout(), list, time.Now())
			})
		},
	}
	listCmd.Flags().StringVar(&listProtocol, "protocol", "", "Filter by protocol")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
	listCmd.Flags().IntVar(&listLimit, "limit", 100, "Maximum rows")
	listCmd.Flags().BoolVar(&listEnabled, "enabled", false, "Only enabled inbounds")
	listCmd.Flags().BoolVar(&listDisabled, "disabled", false, "Only disabled inbounds")
	inboundCmd.AddCommand(listCmd)

	var showOutput string
	showCmd := &cobra.Command{
		Use:   "show <id|tag>",
		Short: "Print one inbound as JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInboundService(cmd, func(inbounds service.InboundService) error {
				view, err := lookupInbound(cmd, inbounds, args[0])
				if err != nil {
					return err
				}
				return writeView(cmd.OutOrStdout(), view, showOutput)
			})
		},
	}
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "json", "Output format: json|yaml")
	inboundCmd.AddCommand(showCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id|tag>",
		Short: "Delete an inbound",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInboundService(cmd, func(inbounds service.InboundService) error {
				view, err := lookupInbound(cmd, inbounds, args[0])
				if err != nil {
					return err
				}
				if err := inbounds.Delete(cmd.Context(), view.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Inbound %d (%s) deleted.\n", view.ID, view.Tag)
				return nil
			})
		},
	}
	inboundCmd.AddCommand(deleteCmd)

	for _, enable := range []bool{true, false} {
		use := "disable"
		if enable {
			use = "enable"
		}
		inboundCmd.AddCommand(&cobra.Command{
			Use:   use + " <id|tag>",
			Short: "Set the enable flag of an inbound",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withInboundService(cmd, func(inbounds service.InboundService) error {
					view, err := lookupInbound(cmd, inbounds, args[0])
					if err != nil {
						return err
					}
					if _, err := inbounds.SetEnable(cmd.Context(), view.ID, enable); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Inbound %d %sd.\n", view.ID, use)
					return nil
				})
			},
		})
	}

	var easy easyFlags
	easyCmd := &cobra.Command{
		Use:   "easy",
		Short: "Create an inbound from a port and optional overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := easy.input(cmd)
			if err != nil {
				return err
			}
			return withInboundService(cmd, func(inbounds service.InboundService) error {
				build := inbounds.CreateEasy
				if easy.dryRun {
					build = inbounds.Preview
				}
				view, err := build(cmd.Context(), input)
				if err != nil {
					return err
				}
				return writeView(cmd.OutOrStdout(), view, easy.output)
			})
		},
	}
	easy.bind(easyCmd)
	inboundCmd.AddCommand(easyCmd)

	rootCmd.AddCommand(inboundCmd)
}

// easyFlags 只把用户显式设置的参数传给服务，其余字段走配置默认值。
type easyFlags struct {
	port     int
	protocol string
	network  string
	security string
	remark   string
	tag      string
	listen   string
	up       string
	down     string
	total    string
	expiry   string
	dryRun   bool
	output   string
}

func (f *easyFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&f.port, "port", "p", 0, "Listen port (required)")
	flags.StringVar(&f.protocol, "protocol", "", "vmess or vless")
	flags.StringVar(&f.network, "network", "", "Stream network, e.g. ws or tcp")
	flags.StringVar(&f.security, "security", "", "Stream security, e.g. tls or none")
	flags.StringVar(&f.remark, "remark", "", "Remark")
	flags.StringVar(&f.tag, "tag", "", "Tag (default inbound-<port>)")
	flags.StringVar(&f.listen, "listen", "", "Listen address")
	flags.StringVar(&f.up, "up", "", "Upload counter, e.g. 0 or 10GB")
	flags.StringVar(&f.down, "down", "", "Download counter")
	flags.StringVar(&f.total, "total", "", "Traffic quota, e.g. 100GB (0 = unlimited)")
	flags.StringVar(&f.expiry, "expiry", "", "Lifetime such as 1MO, or an epoch timestamp")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Build and print without saving")
	flags.StringVarP(&f.output, "output", "o", "json", "Output format: json|yaml")
	_ = cmd.MarkFlagRequired("port")
}

func (f *easyFlags) input(cmd *cobra.Command) (service.EasyInboundInput, error) {
	changed := cmd.Flags().Changed
	input := service.EasyInboundInput{Port: ptr(f.port)}
	strs := []struct {
		name   string
		value  string
		target **string
	}{
		{"protocol", f.protocol, &input.Protocol},
		{"network", f.network, &input.Network},
		{"security", f.security, &input.Security},
		{"remark", f.remark, &input.Remark},
		{"tag", f.tag, &input.Tag},
		{"listen", f.listen, &input.Listen},
	}
	for _, s := range strs {
		if changed(s.name) {
			*s.target = ptr(s.value)
		}
	}
	anys := []struct {
		name   string
		value  string
		target *any
	}{
		{"up", f.up, &input.Up},
		{"down", f.down, &input.Down},
		{"total", f.total, &input.Total},
		{"expiry", f.expiry, &input.ExpiryTime},
	}
	for _, a := range anys {
		if changed(a.name) {
			*a.target = a.value
		}
	}
	if f.output != "json" && f.output != "yaml" {
		return input, fmt.Errorf("unknown output format %q", f.output)
	}
	return input, nil
}

func withInboundService(cmd *cobra.Command, fn func(service.InboundService) error) error {
	handle, err := getStore(cmd.Context(), appConfig)
	if err != nil {
		return err
	}
	defer handle.Close()
	return fn(newInboundService(handle, appConfig, cliLogger(appConfig)))
}

// lookupInbound 数字参数按 ID 查找，其余按 tag 查找。
func lookupInbound(cmd *cobra.Command, inbounds service.InboundService, ref string) (*service.InboundView, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return inbounds.Get(cmd.Context(), id)
	}
	return inbounds.GetByTag(cmd.Context(), ref)
}

func printInbounds(out io.Writer, list *service.InboundList, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTag\tPort\tProtocol\tEnabled\tUsed\tQuota\tExpires")
	for _, in := range list.Items {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%v\t%s\t%s\t%s\n",
			in.ID, in.Tag, in.Port, in.Protocol, in.Enable,
			humanize.IBytes(uint64(max(in.Up+in.Down, 0))),
			quotaLabel(in.Total),
			expiryLabel(in.ExpiryTime, now),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d inbounds\n", len(list.Items), list.Total)
	return nil
}

func quotaLabel(total int64) string {
	if total <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(total))
}

func expiryLabel(expiryMillis int64, now time.Time) string {
	if expiryMillis <= 0 {
		return "never"
	}
	return humanize.RelTime(time.UnixMilli(expiryMillis), now, "ago", "from now")
}

func writeView(out io.Writer, view *service.InboundView, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml":
		return writeYAML(out, view)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeYAML 经由 JSON 转换，保证字段名与 API 输出一致 (streamSettings 等)。
func writeYAML(out io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle 清除 JSON 解析带来的 flow 样式，字符串仅在不改变类型时去掉引号。
func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!str" && plainSafe(n.Value) {
			n.Style = 0
		}
	default:
		n.Style = 0
	}
	for _, child := range n.Content {
		blockStyle(child)
	}
}

func plainSafe(s string) bool {
	var probe any
	if s == "" || yaml.Unmarshal([]byte(s), &probe) != nil {
		return false
	}
	v, ok := probe.(string)
	return ok && v == s
}

func ptr[T any](v T) *T {
	return &v
}
